package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// FindScenarios returns the scenario files under path. A file is returned
// as is; a directory yields its *.yaml and *.yml files (not recursive),
// sorted by name.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("stat scenarios: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	paths := []string{}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(path, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// SuiteResult summarizes a run of several scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one failed scenario of a suite.
type ScenarioFailure struct {
	ScenarioPath string `json:"scenario_path"`
	Name         string `json:"name,omitempty"`
	Error        string `json:"error"`
}

// RunSuite loads and runs each scenario file. A scenario that cannot be
// loaded or run counts as failed; the suite continues with the next one.
// ctx is checked between scenarios.
func RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	result := &SuiteResult{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalScenarios++

		fail := func(name, msg string) {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: path,
				Name:         name,
				Error:        msg,
			})
		}

		scenario, err := LoadScenario(path)
		if err != nil {
			fail("", fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			fail(scenario.Name, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			fail(scenario.Name, fmt.Sprintf("scenario assertions failed: %v", runResult.Errors))
			continue
		}

		result.Passed++
	}

	return result, nil
}
