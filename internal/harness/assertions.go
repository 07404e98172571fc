package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/scenesync/internal/canon"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the final state.
// Returns one message per failed assertion.
func EvaluateAssertions(state *State, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEntity:
			err = assertEntity(state, a)
		case AssertAbsent:
			err = assertAbsent(state, a)
		case AssertEntityCount:
			err = assertCount(a.Type, len(state.Entities), a.Count)
		case AssertTransactions:
			err = assertCount(a.Type, len(state.Transactions), a.Count)
		case AssertChildren:
			err = assertChildren(state, a)
		case AssertProgress:
			err = assertProgress(state, a)
		case AssertSession:
			err = assertSession(state, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func assertEntity(state *State, a Assertion) error {
	e, ok := state.Entity(a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("entity %q", a.ID),
			Actual:   "not found",
		}
	}
	if a.Kind != "" && e.Kind != a.Kind {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("entity %q of kind %s", a.ID, a.Kind),
			Actual:   fmt.Sprintf("kind %s", e.Kind),
		}
	}
	if a.Parent != nil && e.Parent != *a.Parent {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("entity %q under %q", a.ID, *a.Parent),
			Actual:   fmt.Sprintf("parent %q", e.Parent),
		}
	}

	// Subset match on payload keys, compared in canonical form so that 1 and
	// 1.0 are equal.
	for _, key := range sortedKeys(a.Expect) {
		want, err := canon.ValueOf(a.Expect[key])
		if err != nil {
			return fmt.Errorf("entity %q: expect[%q]: %w", a.ID, key, err)
		}
		got, ok := e.Data[key]
		if !ok {
			return &AssertionError{
				Type:     AssertEntity,
				Expected: fmt.Sprintf("entity %q field %q", a.ID, key),
				Actual:   "field not present",
			}
		}
		wantJSON, err := canon.Marshal(want)
		if err != nil {
			return fmt.Errorf("entity %q: expect[%q]: %w", a.ID, key, err)
		}
		gotJSON, err := canon.Marshal(got)
		if err != nil {
			return fmt.Errorf("entity %q: field %q: %w", a.ID, key, err)
		}
		if !bytes.Equal(wantJSON, gotJSON) {
			return &AssertionError{
				Type:     AssertEntity,
				Expected: fmt.Sprintf("entity %q field %q = %s", a.ID, key, wantJSON),
				Actual:   string(gotJSON),
			}
		}
	}
	return nil
}

func assertAbsent(state *State, a Assertion) error {
	if e, ok := state.Entity(a.ID); ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("no entity %q", a.ID),
			Actual:   fmt.Sprintf("%s written by %s", e.Kind, e.Transaction),
		}
	}
	return nil
}

func assertCount(typ string, got int, want *int) error {
	if got != *want {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%d", *want),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertChildren(state *State, a Assertion) error {
	got := state.Children(a.ID)
	want := a.IDs
	if want == nil {
		want = got[:0]
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertChildren,
			Expected: fmt.Sprintf("children of %q = %v", a.ID, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func assertProgress(state *State, a Assertion) error {
	if !slices.Equal(state.Progress, a.Values) {
		return &AssertionError{
			Type:     AssertProgress,
			Expected: fmt.Sprintf("%v", a.Values),
			Actual:   fmt.Sprintf("%v", state.Progress),
		}
	}
	return nil
}

func assertSession(state *State, a Assertion) error {
	if state.Closed != *a.Closed {
		return &AssertionError{
			Type:     AssertSession,
			Expected: fmt.Sprintf("closed = %t", *a.Closed),
			Actual:   fmt.Sprintf("closed = %t", state.Closed),
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
