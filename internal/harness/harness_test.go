package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenesync/internal/model"
)

func material(id model.Identifier, r int) RecordSpec {
	return RecordSpec{
		Kind: model.KindMaterial,
		ID:   id,
		Data: map[string]any{"base_color": map[string]any{"r": r, "g": 0, "b": 0, "a": 255}},
	}
}

func percent(p int) *int { return &p }

func TestRun_CommitAndClose(t *testing.T) {
	result, err := Run(context.Background(), &Scenario{
		Name:        "commit_and_close",
		Description: "d",
		Steps: []Step{
			{Commit: &CommitStep{Records: []RecordSpec{material("m", 1)}}},
			{Progress: percent(100)},
			{Close: true},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Step: 1, Op: OpCommit, Transaction: "tx-1", Seq: 2, Applied: 1}, result.Trace[0])
	assert.Equal(t, OpProgress, result.Trace[1].Op)
	assert.Equal(t, TraceEvent{Step: 3, Op: OpClose}, result.Trace[2])

	state := result.State
	assert.Equal(t, "session-1", state.SessionID)
	assert.True(t, state.Closed)
	assert.Equal(t, []int{100}, state.Progress)
	require.Len(t, state.Entities, 1)
	assert.NotEmpty(t, state.Entities[0].Hash)
}

func TestRun_ProgressAfterCloseIsDropped(t *testing.T) {
	result, err := Run(context.Background(), &Scenario{
		Name:        "progress_after_close",
		Description: "d",
		Steps: []Step{
			{Progress: percent(30)},
			{Close: true},
			{Progress: percent(90)},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.True(t, result.State.Closed)
	assert.Equal(t, []int{30}, result.State.Progress)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, 90, *result.Trace[2].Percent)
}

func TestRun_UnexpectedError(t *testing.T) {
	result, err := Run(context.Background(), &Scenario{
		Name:        "unexpected",
		Description: "d",
		Steps: []Step{{Commit: &CommitStep{Records: []RecordSpec{{
			Kind: model.KindObjectInstance,
			ID:   "i",
			Data: map[string]any{"object_id": "missing"},
		}}}}},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error UNRESOLVED_REFERENCE")
	assert.Empty(t, result.State.Entities)
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	result, err := Run(context.Background(), &Scenario{
		Name:        "missing_error",
		Description: "d",
		Steps: []Step{{
			Commit:      &CommitStep{Records: []RecordSpec{material("m", 1)}},
			ExpectError: "KIND_CONFLICT",
		}},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error KIND_CONFLICT, got success")
}

func TestRun_WrongError(t *testing.T) {
	result, err := Run(context.Background(), &Scenario{
		Name:        "wrong_error",
		Description: "d",
		Steps: []Step{
			{Commit: &CommitStep{Records: []RecordSpec{material("m", 1)}}},
			{Close: true},
			{
				Commit:      &CommitStep{Records: []RecordSpec{material("m", 2)}},
				ExpectError: "KIND_CONFLICT",
			},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error KIND_CONFLICT, got UNKNOWN_SESSION")
}

func TestRun_FailedAssertions(t *testing.T) {
	one := 1
	result, err := Run(context.Background(), &Scenario{
		Name:        "assertions",
		Description: "d",
		Steps: []Step{
			{Commit: &CommitStep{Records: []RecordSpec{material("m", 1), material("n", 2)}}},
		},
		Assertions: []Assertion{
			{Type: AssertEntityCount, Count: &one},
			{Type: AssertAbsent, ID: "n"},
			{Type: AssertEntity, ID: "m", Expect: map[string]any{"base_color": map[string]any{"r": 1, "g": 0, "b": 0, "a": 255}}},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "entity_count")
	assert.Contains(t, result.Errors[1], `no entity "n"`)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/quad_export.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_VersionMismatch(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{
		Name:        "old_protocol",
		Description: "d",
		Session:     SessionSpec{Protocol: "2.0"},
		Steps:       []Step{{Close: true}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open session")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
