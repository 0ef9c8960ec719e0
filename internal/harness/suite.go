package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
)

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	Passed  int                `json:"passed"`
	Failed  int                `json:"failed"`
	Results map[string]*Result `json:"results"`
}

// Pass reports whether every scenario passed.
func (s *SuiteResult) Pass() bool { return s.Failed == 0 }

// RunDir loads and runs every *.yaml scenario in dir, in name order. A
// scenario that fails to load or run aborts the suite; failed assertions
// only mark it failed.
func RunDir(ctx context.Context, dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	slices.Sort(paths)

	suite := &SuiteResult{Results: map[string]*Result{}}
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := suite.Results[scenario.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate scenario name %q", path, scenario.Name)
		}
		result, err := RunContext(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		suite.Results[scenario.Name] = result
		if result.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	return suite, nil
}
