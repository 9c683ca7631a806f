package proctreetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/ruffel/proctree"
)

// Standard categories for grouping tests.
const (
	CategoryCore        = "core"
	CategoryEnvironment = "environment"
	CategorySystem      = "system"
	CategoryErrors      = "errors"
	CategoryTree        = "tree"
)

// T is the minimal interface required for testify/assert and require.
type T interface {
	Errorf(format string, args ...any)
	FailNow()
	Skipf(format string, args ...any)
	Context() context.Context
	TempDir() string
	Name() string
}

// Factory opens a fresh environment for a single contract.
type Factory func(t *testing.T) proctree.Environment

// TestCase defines a single behavioral contract requirement.
type TestCase struct {
	Category    string
	Name        string
	Description string
	Prereq      func(t T, env proctree.Environment) (ok bool, reason string)
	Run         func(t T, env proctree.Environment)
}

// ID returns the stable, globally unique contract identifier.
func (tc TestCase) ID() string {
	return fmt.Sprintf("%s/%s", tc.Category, tc.Name)
}

// Verify is the standard Go test entry point for provider authors.
//
// Several contracts close the environment, so every case gets its own.
func Verify(t *testing.T, factory Factory) {
	t.Helper()

	for _, tc := range AllContracts() {
		t.Run(tc.ID(), func(t *testing.T) {
			env := factory(t)
			t.Cleanup(func() { _ = env.Close() })

			if tc.Prereq != nil {
				ok, reason := tc.Prereq(t, env)
				if !ok {
					t.Skipf("prereq unmet: %s", reason)
				}
			}

			tc.Run(t, env)
		})
	}
}
