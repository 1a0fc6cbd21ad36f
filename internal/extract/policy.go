package extract

import "bga/internal/eventpolicy"

// Policy is the per-format rule set a Walker applies.
type Policy struct {
	Name string
	// Whitelist holds the keys whose string values are displayable text.
	Whitelist map[string]struct{}
	// Blacklist holds keys that are never descended into (filenames, script bodies).
	Blacklist map[string]struct{}
	// Events enables command-shape handling when non-nil.
	Events *eventpolicy.Table
	// SkipAudio skips mappings that carry name, volume, pitch and pan.
	SkipAudio bool
	// StrictSequences only extracts strings inside a sequence when the enclosing
	// mapping key is whitelisted.
	StrictSequences bool
}

func (p *Policy) whitelisted(key string) bool {
	_, ok := p.Whitelist[key]
	return ok
}

func (p *Policy) blacklisted(key string) bool {
	_, ok := p.Blacklist[key]
	return ok
}

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// RPGMaker is the policy for RPG Maker MV/MZ data and plugin JSON.
var RPGMaker = &Policy{
	Name: "rpgm",
	Whitelist: keySet(
		"name", "description", "message1", "message2", "message3", "message4",
		"note", "nickname", "profile", "gameTitle", "currencyUnit",
		"terms", "basic", "commands", "params", "messages",
		"actionFailure", "actorDamage", "actorDrain", "actorGain", "actorLoss",
		"actorNoDamage", "actorNoHit", "actorRecovery", "alwaysDash",
		"bgmVolume", "bgsVolume", "buffAdd", "buffRemove", "commandRemember",
		"counterAttack", "criticalToActor", "criticalToEnemy", "debuffAdd",
		"defeat", "emerge", "enemyDamage", "enemyDrain", "enemyGain", "enemyLoss",
		"enemyNoDamage", "enemyNoHit", "enemyRecovery", "escapeFailure",
		"escapeStart", "evasion", "expNext", "expTotal", "file", "levelUp",
		"loadMessage", "magicEvasion", "magicReflection", "meVolume", "obtainExp",
		"obtainGold", "obtainItem", "obtainSkill", "partyName", "possession",
		"preemptive", "saveMessage", "seVolume", "substitute", "surprise",
		"useItem", "victory",
	),
	Blacklist: keySet(
		"se", "bgm", "bgs", "me",
		"animation1Name", "animation2Name", "battlerName", "characterName",
		"faceName", "motion", "overlay1Name", "overlay2Name", "tileset",
		"parallaxName", "battleback1Name", "battleback2Name", "script", "url",
	),
	Events:    eventpolicy.RPGMaker,
	SkipAudio: true,
}

// Unity is the policy for text fields in serialized Unity assets.
var Unity = &Policy{
	Name:            "unity",
	Whitelist:       keySet("m_Text", "m_text", "m_Localized"),
	Blacklist:       keySet("m_Script", "m_GameObject", "m_PrefabInstance", "m_CorrespondingSourceObject", "m_Font"),
	StrictSequences: true,
}
