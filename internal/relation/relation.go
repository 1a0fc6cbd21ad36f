// Package relation derives dependency edges between RPG Maker common events, switches,
// variables and database entries from a project's event commands.
package relation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"bga/internal/document"
	"bga/internal/eventpolicy"
	"bga/internal/filewalker"
)

// Node types.
const (
	TypeCommonEvent = "CommonEvent"
	TypeSwitch      = "Switch"
	TypeVariable    = "Variable"
	TypeActor       = "Actor"
	TypeItem        = "Item"
	TypeWeapon      = "Weapon"
	TypeArmor       = "Armor"
	TypeState       = "State"
)

// Relations.
const (
	Calls    = "Calls"
	TurnsOn  = "Turns ON"
	TurnsOff = "Turns OFF"
	Modifies = "Modifies"
	Checks   = "Checks"
)

// MaxID is the largest switch or variable id the editor allows.
const MaxID = 5000

// scriptCondition is the conditional branch type whose second parameter is a script.
const scriptCondition = 12

// ErrNoData is returned when no data folder with CommonEvents.json can be found.
var ErrNoData = errors.New("no RPG Maker data folder found")

// Node is one vertex of the dependency graph.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// Dependency is a directed edge from a common event to what it touches.
type Dependency struct {
	Source   Node   `json:"source"`
	Target   Node   `json:"target"`
	Relation string `json:"relation"`
}

// scriptRefs are the references recognized inside script conditions. The \b guards
// keep "$dataItems[3]" from also matching as switch "s[3]".
var scriptRefs = []struct {
	re     *regexp.Regexp
	prefix string
	typ    string
}{
	{regexp.MustCompile(`\bs\[(\d+)\]`), "sw", TypeSwitch},
	{regexp.MustCompile(`\bv\[(\d+)\]`), "var", TypeVariable},
	{regexp.MustCompile(`\$gameActors\.actor\((\d+)\)`), "actor", TypeActor},
	{regexp.MustCompile(`\$dataItems\[(\d+)\]`), "item", TypeItem},
	{regexp.MustCompile(`\$dataWeapons\[(\d+)\]`), "weapon", TypeWeapon},
	{regexp.MustCompile(`\$dataArmors\[(\d+)\]`), "armor", TypeArmor},
	{regexp.MustCompile(`isStateAffected\((\d+)\)`), "state", TypeState},
}

// Analyzer resolves ids to display names using System.json and CommonEvents.json.
type Analyzer struct {
	dataDir      string
	switches     map[int]string
	variables    map[int]string
	commonEvents map[int]string
}

// DataDir locates the data folder of a project, accepting the folder itself.
func DataDir(project string) (string, error) {
	if filewalker.IsDataDir(project) {
		return project, nil
	}
	path, ok := filewalker.FirstExisting(project,
		filepath.Join("data", "CommonEvents.json"),
		filepath.Join("Data", "CommonEvents.json"),
		filepath.Join("www", "data", "CommonEvents.json"),
	)
	if !ok {
		return "", fmt.Errorf("%w under %s", ErrNoData, project)
	}
	return filepath.Dir(path), nil
}

// NewAnalyzer loads switch and variable names. A missing System.json only loses names.
func NewAnalyzer(project string) (*Analyzer, error) {
	dir, err := DataDir(project)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		dataDir:      dir,
		switches:     map[int]string{},
		variables:    map[int]string{},
		commonEvents: map[int]string{},
	}

	system, err := readJSON(filepath.Join(dir, "System.json"))
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("System names unavailable")
		return a, nil
	}
	if m, ok := system.(map[string]any); ok {
		a.switches = names(m["switches"])
		a.variables = names(m["variables"])
	}
	return a, nil
}

// Analyze walks every common event and returns its dependencies in event order.
func (a *Analyzer) Analyze() ([]Dependency, error) {
	doc, err := readJSON(filepath.Join(a.dataDir, "CommonEvents.json"))
	if err != nil {
		return nil, err
	}
	events, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("CommonEvents.json: expected an array")
	}

	for _, ev := range events {
		m, ok := ev.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := document.Int(m["id"]); ok {
			name, _ := m["name"].(string)
			a.commonEvents[int(id)] = name
		}
	}

	var deps []Dependency
	for _, ev := range events {
		m, ok := ev.(map[string]any)
		if !ok {
			continue
		}
		id, ok := document.Int(m["id"])
		if !ok {
			continue
		}
		source := a.commonEvent(int(id))
		list, _ := m["list"].([]any)
		for _, cmd := range list {
			deps = append(deps, a.command(source, cmd)...)
		}
	}

	log.Info().Int("dependencies", len(deps)).Str("dir", a.dataDir).Msg("Analyzed relations")
	return deps, nil
}

func (a *Analyzer) command(source Node, v any) []Dependency {
	cmd, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	code, ok := document.Int(cmd["code"])
	if !ok {
		return nil
	}
	params, _ := cmd["parameters"].([]any)
	param := func(i int) (int, bool) {
		if i >= len(params) {
			return 0, false
		}
		n, ok := document.Int(params[i])
		return int(n), ok
	}

	var deps []Dependency
	switch eventpolicy.Code(code) {
	case eventpolicy.CommonEvent:
		if target, ok := param(0); ok {
			deps = append(deps, Dependency{Source: source, Target: a.commonEvent(target), Relation: Calls})
		}
	case eventpolicy.ControlSwitches:
		start, ok1 := param(0)
		end, ok2 := param(1)
		op, ok3 := param(2)
		if !ok1 || !ok2 || !ok3 {
			return nil
		}
		if !validRange(start, end) {
			log.Warn().Str("event", source.ID).Int("start", start).Int("end", end).Msg("Skipping invalid switch range")
			return nil
		}
		rel := TurnsOn
		if op != 0 {
			rel = TurnsOff
		}
		for id := 0; id < end-start+1; id++ {
			deps = append(deps, Dependency{Source: source, Target: a.switchNode(start + id), Relation: rel})
		}
	case eventpolicy.ControlVariables:
		start, ok1 := param(0)
		end, ok2 := param(1)
		if !ok1 || !ok2 {
			return nil
		}
		if !validRange(start, end) {
			log.Warn().Str("event", source.ID).Int("start", start).Int("end", end).Msg("Skipping invalid variable range")
			return nil
		}
		for id := 0; id < end-start+1; id++ {
			deps = append(deps, Dependency{Source: source, Target: a.variableNode(start + id), Relation: Modifies})
		}
	case eventpolicy.ConditionalBranch:
		if kind, ok := param(0); !ok || kind != scriptCondition || len(params) < 2 {
			return nil
		}
		script, _ := params[1].(string)
		for _, target := range a.scriptTargets(script) {
			deps = append(deps, Dependency{Source: source, Target: target, Relation: Checks})
		}
	}
	return deps
}

// scriptTargets returns the nodes referenced by a script condition, in pattern order.
func (a *Analyzer) scriptTargets(script string) []Node {
	var nodes []Node
	for _, ref := range scriptRefs {
		for _, m := range ref.re.FindAllStringSubmatch(script, -1) {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			switch ref.typ {
			case TypeSwitch:
				nodes = append(nodes, a.switchNode(id))
			case TypeVariable:
				nodes = append(nodes, a.variableNode(id))
			default:
				nodes = append(nodes, Node{
					ID:    fmt.Sprintf("%s_%d", ref.prefix, id),
					Type:  ref.typ,
					Label: fmt.Sprintf("%s %d", ref.typ, id),
				})
			}
		}
	}
	return nodes
}

func (a *Analyzer) commonEvent(id int) Node {
	label := a.commonEvents[id]
	if label == "" {
		label = fmt.Sprintf("CommonEvent %d", id)
	}
	return Node{ID: fmt.Sprintf("ce_%d", id), Type: TypeCommonEvent, Label: label}
}

func (a *Analyzer) switchNode(id int) Node {
	label := a.switches[id]
	if label == "" {
		label = fmt.Sprintf("Switch %d", id)
	}
	return Node{ID: fmt.Sprintf("sw_%d", id), Type: TypeSwitch, Label: label}
}

func (a *Analyzer) variableNode(id int) Node {
	label := a.variables[id]
	if label == "" {
		label = fmt.Sprintf("Variable %d", id)
	}
	return Node{ID: fmt.Sprintf("var_%d", id), Type: TypeVariable, Label: label}
}

// validRange reports whether [start, end] is a range of editor ids.
func validRange(start, end int) bool {
	return start >= 1 && start <= end && end <= MaxID
}

// Nodes returns the distinct nodes of deps sorted by id.
func Nodes(deps []Dependency) []Node {
	byID := make(map[string]Node)
	for _, d := range deps {
		byID[d.Source.ID] = d.Source
		byID[d.Target.ID] = d.Target
	}
	nodes := make([]Node, 0, len(byID))
	for _, n := range byID {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// names reads a 1-based name table; index 0 is always null in RPG Maker data.
func names(v any) map[int]string {
	out := make(map[int]string)
	list, _ := v.([]any)
	for i := 1; i < len(list); i++ {
		if s, ok := list[i].(string); ok && s != "" {
			out[i] = s
		}
	}
	return out
}

func readJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	doc, err := document.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}
