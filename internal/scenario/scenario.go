package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/traverql/internal/fixture"
	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/lowering"
)

// Scenario defines an end-to-end lowering scenario.
// A scenario lowers one fixture and asserts on the shape of the result.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path to the CUE fixture to lower.
	// Relative paths resolve against the scenario file location.
	Fixture string `yaml:"fixture"`

	// Expect holds the inline expectations checked by Run.
	Expect ExpectClause `yaml:"expect"`
}

// ExpectClause specifies the expected shape of the lowered output.
type ExpectClause struct {
	// Blocks is the expected length of the lowered sequence.
	Blocks int `yaml:"blocks"`

	// HoistedFilters is the expected number of filters appearing after
	// GlobalOperationsStart.
	HoistedFilters int `yaml:"hoisted_filters"`

	// InsertedCoercions is the expected number of CoerceType blocks the
	// pipeline added on top of those already present in the input.
	InsertedCoercions int `yaml:"inserted_coercions"`
}

// Result captures one scenario execution.
type Result struct {
	Input              []ir.Block
	Lowered            []ir.Block
	QueryFingerprint   string
	LoweredFingerprint string
	LoweredJSON        []byte
}

// Load reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos, and the fixture path is resolved relative to
// the scenario file's directory.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(filepath.Dir(path), scenario.Fixture)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
		return fmt.Errorf("fixture file not found: %s", s.Fixture)
	}

	if s.Expect.Blocks <= 0 {
		return fmt.Errorf("expect.blocks must be positive")
	}
	if s.Expect.HoistedFilters < 0 {
		return fmt.Errorf("expect.hoisted_filters must be non-negative")
	}
	if s.Expect.InsertedCoercions < 0 {
		return fmt.Errorf("expect.inserted_coercions must be non-negative")
	}

	return nil
}

// Run compiles the scenario's fixture, lowers it, and checks the inline
// expectations. Pipeline faults and expectation mismatches both surface
// as errors.
func Run(scenario *Scenario) (*Result, error) {
	fix, err := fixture.Load(scenario.Fixture)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	queryFP, err := ir.Fingerprint(fix.Blocks)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	lowered, err := lowering.Lower(fix.Blocks, fix.Metadata)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	loweredFP, err := ir.LoweredFingerprint(lowered)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	loweredJSON, err := ir.MarshalCanonical(lowered)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		Input:              fix.Blocks,
		Lowered:            lowered,
		QueryFingerprint:   queryFP,
		LoweredFingerprint: loweredFP,
		LoweredJSON:        loweredJSON,
	}

	if err := checkExpectations(scenario, result); err != nil {
		return result, err
	}
	return result, nil
}

// checkExpectations compares the lowered output against the scenario's
// inline expect clause.
func checkExpectations(scenario *Scenario, result *Result) error {
	if got := len(result.Lowered); got != scenario.Expect.Blocks {
		return fmt.Errorf("scenario %s: lowered to %d blocks, expected %d",
			scenario.Name, got, scenario.Expect.Blocks)
	}

	if got := countHoistedFilters(result.Lowered); got != scenario.Expect.HoistedFilters {
		return fmt.Errorf("scenario %s: %d hoisted filters, expected %d",
			scenario.Name, got, scenario.Expect.HoistedFilters)
	}

	inserted := countCoercions(result.Lowered) - countCoercions(result.Input)
	if inserted != scenario.Expect.InsertedCoercions {
		return fmt.Errorf("scenario %s: %d inserted coercions, expected %d",
			scenario.Name, inserted, scenario.Expect.InsertedCoercions)
	}

	return nil
}

// countHoistedFilters counts filters appearing after GlobalOperationsStart.
func countHoistedFilters(blocks []ir.Block) int {
	n := 0
	global := false
	for _, block := range blocks {
		switch block.(type) {
		case ir.GlobalOperationsStart:
			global = true
		case ir.Filter:
			if global {
				n++
			}
		}
	}
	return n
}

func countCoercions(blocks []ir.Block) int {
	n := 0
	for _, block := range blocks {
		if _, ok := block.(ir.CoerceType); ok {
			n++
		}
	}
	return n
}
