// Package eventpolicy maps RPG Maker MV/MZ event command codes to their meaning and to
// the parameter slots that carry displayable text.
package eventpolicy

import (
	"bga/internal/docpath"
)

// Code is an event command code.
type Code int

// Text display.
const (
	End                   Code = 0
	ShowTextSetup         Code = 101
	ShowChoices           Code = 102
	InputNumber           Code = 103
	SelectItem            Code = 104
	ShowScrollingText     Code = 105
	Comment               Code = 108
	ShowTextLine          Code = 401
	WhenChoice            Code = 402
	WhenCancel            Code = 403
	ChoicesEnd            Code = 404
	ShowScrollingTextLine Code = 405
	CommentContinuation   Code = 408
)

// Flow control and game state.
const (
	ConditionalBranch   Code = 111
	Loop                Code = 112
	BreakLoop           Code = 113
	ExitEventProcessing Code = 115
	CommonEvent         Code = 117
	Label               Code = 118
	JumpToLabel         Code = 119
	ControlSwitches     Code = 121
	ControlVariables    Code = 122
	ControlSelfSwitch   Code = 123
	ControlTimer        Code = 124
	ChangeGold          Code = 125
	ChangeItems         Code = 126
	ChangeWeapons       Code = 127
	ChangeArmors        Code = 128
	ChangePartyMember   Code = 129
	Else                Code = 411
	BranchEnd           Code = 412
	RepeatAbove         Code = 413
)

// Movement, screen and audio.
const (
	MoveRouteChangeImage Code = 41
	MoveRoutePlaySE      Code = 44
	MoveRouteScript      Code = 45
	TransferPlayer       Code = 201
	SetVehicleLocation   Code = 202
	SetEventLocation     Code = 203
	ScrollMap            Code = 204
	SetMovementRoute     Code = 205
	ShowPicture          Code = 231
	PlayBGM              Code = 241
	FadeoutBGM           Code = 242
	PlayBGS              Code = 245
	FadeoutBGS           Code = 246
	PlayME               Code = 249
	PlaySE               Code = 250
)

// Battle, actors and scripting.
const (
	BattleProcessing        Code = 301
	ChangeHP                Code = 311
	ChangeMP                Code = 312
	ChangeState             Code = 313
	RecoverAll              Code = 314
	ChangeName              Code = 320
	ChangeNickname          Code = 324
	ForceAction             Code = 339
	Script                  Code = 355
	PluginCommandMV         Code = 356
	PluginCommandMZ         Code = 357
	IfWin                   Code = 601
	IfEscape                Code = 602
	IfLose                  Code = 603
	BattleBranchEnd         Code = 604
	ScriptContinuation      Code = 655
	PluginCommandMZArgument Code = 657
)

// Slot is one piece of text selected from a command's parameters.
type Slot struct {
	Text string
	// Suffix locates the text relative to the parameters array, e.g. [0] or [0][2].
	Suffix docpath.Path
}

// Selector picks the text slots out of a parameters array. It must tolerate any shape.
type Selector func(params []any) []Slot

// Command describes a recognized event command.
type Command struct {
	Code Code
	Name string
	// Select is nil for commands that carry no translatable text.
	Select Selector
}

// Slots applies the selector, returning nil for textless commands.
func (c Command) Slots(params []any) []Slot {
	if c.Select == nil {
		return nil
	}
	return c.Select(params)
}

// Table is an immutable code lookup. Safe for concurrent reads.
type Table struct {
	byCode map[Code]Command
}

// NewTable builds a table from a list of commands. Later entries win on duplicate codes.
func NewTable(commands ...Command) *Table {
	t := &Table{byCode: make(map[Code]Command, len(commands))}
	for _, c := range commands {
		t.byCode[c.Code] = c
	}
	return t
}

// Lookup returns the command registered for code.
func (t *Table) Lookup(code int64) (Command, bool) {
	if t == nil {
		return Command{}, false
	}
	c, ok := t.byCode[Code(code)]
	return c, ok
}

// Len returns the number of recognized codes.
func (t *Table) Len() int { return len(t.byCode) }

// StringAt selects params[i] when it is a string.
func StringAt(i int) Selector {
	return func(params []any) []Slot {
		if i >= len(params) {
			return nil
		}
		s, ok := params[i].(string)
		if !ok {
			return nil
		}
		return []Slot{{Text: s, Suffix: docpath.Path{docpath.Index(i)}}}
	}
}

// EachStringAt selects every string element of the array at params[i].
func EachStringAt(i int) Selector {
	return func(params []any) []Slot {
		if i >= len(params) {
			return nil
		}
		items, ok := params[i].([]any)
		if !ok {
			return nil
		}
		var slots []Slot
		for j, item := range items {
			if s, ok := item.(string); ok {
				slots = append(slots, Slot{Text: s, Suffix: docpath.Path{docpath.Index(i), docpath.Index(j)}})
			}
		}
		return slots
	}
}

// RPGMaker is the command table for RPG Maker MV/MZ data files.
var RPGMaker = NewTable(
	Command{Code: ShowTextSetup, Name: "ShowTextSetup", Select: StringAt(4)},
	Command{Code: ShowTextLine, Name: "ShowTextLine", Select: StringAt(0)},
	Command{Code: ShowScrollingText, Name: "ShowScrollingText", Select: StringAt(0)},
	Command{Code: ShowScrollingTextLine, Name: "ShowScrollingTextLine", Select: StringAt(0)},
	Command{Code: ShowChoices, Name: "ShowChoices", Select: EachStringAt(0)},
	Command{Code: ChangeName, Name: "ChangeName", Select: StringAt(1)},
	Command{Code: ChangeNickname, Name: "ChangeNickname", Select: StringAt(1)},

	Command{Code: End, Name: "End"},
	Command{Code: InputNumber, Name: "InputNumber"},
	Command{Code: SelectItem, Name: "SelectItem"},
	Command{Code: Comment, Name: "Comment"},
	Command{Code: CommentContinuation, Name: "CommentContinuation"},
	Command{Code: WhenChoice, Name: "WhenChoice"},
	Command{Code: WhenCancel, Name: "WhenCancel"},
	Command{Code: ChoicesEnd, Name: "ChoicesEnd"},
	Command{Code: ConditionalBranch, Name: "ConditionalBranch"},
	Command{Code: Loop, Name: "Loop"},
	Command{Code: BreakLoop, Name: "BreakLoop"},
	Command{Code: ExitEventProcessing, Name: "ExitEventProcessing"},
	Command{Code: CommonEvent, Name: "CommonEvent"},
	Command{Code: Label, Name: "Label"},
	Command{Code: JumpToLabel, Name: "JumpToLabel"},
	Command{Code: ControlSwitches, Name: "ControlSwitches"},
	Command{Code: ControlVariables, Name: "ControlVariables"},
	Command{Code: ControlSelfSwitch, Name: "ControlSelfSwitch"},
	Command{Code: ControlTimer, Name: "ControlTimer"},
	Command{Code: ChangeGold, Name: "ChangeGold"},
	Command{Code: ChangeItems, Name: "ChangeItems"},
	Command{Code: ChangeWeapons, Name: "ChangeWeapons"},
	Command{Code: ChangeArmors, Name: "ChangeArmors"},
	Command{Code: ChangePartyMember, Name: "ChangePartyMember"},
	Command{Code: Else, Name: "Else"},
	Command{Code: BranchEnd, Name: "BranchEnd"},
	Command{Code: RepeatAbove, Name: "RepeatAbove"},
	Command{Code: MoveRouteChangeImage, Name: "MoveRouteChangeImage"},
	Command{Code: MoveRoutePlaySE, Name: "MoveRoutePlaySE"},
	Command{Code: MoveRouteScript, Name: "MoveRouteScript"},
	Command{Code: TransferPlayer, Name: "TransferPlayer"},
	Command{Code: SetVehicleLocation, Name: "SetVehicleLocation"},
	Command{Code: SetEventLocation, Name: "SetEventLocation"},
	Command{Code: ScrollMap, Name: "ScrollMap"},
	Command{Code: SetMovementRoute, Name: "SetMovementRoute"},
	Command{Code: ShowPicture, Name: "ShowPicture"},
	Command{Code: PlayBGM, Name: "PlayBGM"},
	Command{Code: FadeoutBGM, Name: "FadeoutBGM"},
	Command{Code: PlayBGS, Name: "PlayBGS"},
	Command{Code: FadeoutBGS, Name: "FadeoutBGS"},
	Command{Code: PlayME, Name: "PlayME"},
	Command{Code: PlaySE, Name: "PlaySE"},
	Command{Code: BattleProcessing, Name: "BattleProcessing"},
	Command{Code: ChangeHP, Name: "ChangeHP"},
	Command{Code: ChangeMP, Name: "ChangeMP"},
	Command{Code: ChangeState, Name: "ChangeState"},
	Command{Code: RecoverAll, Name: "RecoverAll"},
	Command{Code: ForceAction, Name: "ForceAction"},
	Command{Code: Script, Name: "Script"},
	Command{Code: PluginCommandMV, Name: "PluginCommandMV"},
	Command{Code: PluginCommandMZ, Name: "PluginCommandMZ"},
	Command{Code: IfWin, Name: "IfWin"},
	Command{Code: IfEscape, Name: "IfEscape"},
	Command{Code: IfLose, Name: "IfLose"},
	Command{Code: BattleBranchEnd, Name: "BattleBranchEnd"},
	Command{Code: ScriptContinuation, Name: "ScriptContinuation"},
	Command{Code: PluginCommandMZArgument, Name: "PluginCommandMZArgument"},
)
