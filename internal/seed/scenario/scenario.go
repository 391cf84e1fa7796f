// Package scenario loads Lua seeding scripts into ordered step lists.
//
// A script builds a Scenario value through a small DSL and returns it:
//
//	local scn = Scenario.new("intake cohort")
//	scn:user("ada")
//	scn:persona("steady_optimist", { jitter = 0.1 })
//	scn:run({ passes = 3, notes = "baseline sitting" })
//	scn:responses(Likert.uniform(6))
//	scn:run()
//	return scn
//
// The DSL only records steps; the seed generator interprets them.
package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/ontogenic.space/internal/survey"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered seeding script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is a single recorded DSL call.
type Step struct {
	Kind string
	Args map[string]any
}

// Step kinds recorded by the DSL.
const (
	StepUser      = "user"
	StepPersona   = "persona"
	StepResponses = "responses"
	StepRun       = "run"
)

// Load parses a Lua scenario script from disk. Scripts without an
// explicit name take the file's base name.
func Load(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	registerScenarioType(state)
	registerScenarioConstructor(state)
	registerLikertHelpers(state)
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

func registerLikertHelpers(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, likertHelpers, 0)
	state.SetGlobal("Likert")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "user", Function: scenarioUser},
	{Name: "persona", Function: scenarioPersona},
	{Name: "responses", Function: scenarioResponses},
	{Name: "run", Function: scenarioRun},
}

var likertHelpers = []lua.RegistryFunction{
	{Name: "uniform", Function: likertUniform},
	{Name: "items", Function: likertItems},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

func scenarioUser(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckString(state, 2)
	appendStep(scenario, StepUser, map[string]any{"id": id})
	return 0
}

func scenarioPersona(state *lua.State) int {
	scenario := checkScenario(state)
	name := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	data := map[string]any{"name": name}
	for key, value := range opts {
		data[key] = value
	}
	appendStep(scenario, StepPersona, data)
	return 0
}

func scenarioResponses(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	appendStep(scenario, StepResponses, data)
	return 0
}

func scenarioRun(state *lua.State) int {
	scenario := checkScenario(state)
	data := optionalTable(state, 2)
	appendStep(scenario, StepRun, data)
	return 0
}

// likertUniform pushes a full answer sheet with every item at the given
// scale point.
func likertUniform(state *lua.State) int {
	value := lua.CheckInteger(state, 1)
	instrument := survey.Build("")
	state.NewTable()
	for _, item := range instrument.Items {
		state.PushInteger(value)
		state.SetField(-2, item.ID)
	}
	return 1
}

// likertItems pushes the ordered item id list of the canonical survey.
func likertItems(state *lua.State) int {
	instrument := survey.Build("")
	state.NewTable()
	for i, item := range instrument.Items {
		state.PushString(item.ID)
		state.RawSetInt(-2, i+1)
	}
	return 1
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) {
	if scenario == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	case lua.TypeUserData:
		return state.ToUserData(index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
