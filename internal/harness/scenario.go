package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scenesync/internal/canon"
	"github.com/roach88/scenesync/internal/model"
	"github.com/roach88/scenesync/internal/protocol"
)

// Scenario is a conformance scenario loaded from YAML.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Session overrides the handshake defaults.
	Session SessionSpec `yaml:"session,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SessionSpec describes the session the scenario publishes into. Empty
// fields take the defaults of DefaultSession.
type SessionSpec struct {
	Protocol  string `yaml:"protocol,omitempty"`
	Project   string `yaml:"project,omitempty"`
	Source    string `yaml:"source,omitempty"`
	User      string `yaml:"user,omitempty"`
	Rules     string `yaml:"rules,omitempty"`
	Publisher string `yaml:"publisher,omitempty"`
}

// Step is one scenario action. Exactly one of Commit, Progress and Close is
// set.
type Step struct {
	Commit   *CommitStep `yaml:"commit,omitempty"`
	Progress *int        `yaml:"progress,omitempty"`
	Close    bool        `yaml:"close,omitempty"`

	// ExpectError names the protocol error the step must fail with, e.g.
	// UNRESOLVED_REFERENCE. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// CommitStep is one transaction batch.
type CommitStep struct {
	// Transaction defaults to tx-<n>, n counting commit steps from 1.
	Transaction string       `yaml:"transaction,omitempty"`
	Records     []RecordSpec `yaml:"records"`
}

// RecordSpec is a wire record written in YAML. When Data has no "id" key
// the record identifier is filled in.
type RecordSpec struct {
	Kind model.Kind       `yaml:"kind"`
	ID   model.Identifier `yaml:"id"`
	Data map[string]any   `yaml:"data"`
}

// Record converts r to a wire record.
func (r RecordSpec) Record() (model.Record, error) {
	data := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	if _, ok := data["id"]; !ok {
		data["id"] = string(r.ID)
	}
	v, err := canon.ValueOf(data)
	if err != nil {
		return model.Record{}, fmt.Errorf("record %q: %w", r.ID, err)
	}
	obj, ok := v.(canon.Object)
	if !ok {
		return model.Record{}, fmt.Errorf("record %q: data is %T, want object", r.ID, v)
	}
	return model.Record{Kind: r.Kind, ID: r.ID, Data: obj}, nil
}

// Assertion checks the final server state.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// ID is the entity checked by entity, absent and children.
	ID model.Identifier `yaml:"id,omitempty"`

	// Kind and Parent are optional checks for entity.
	Kind   model.Kind        `yaml:"kind,omitempty"`
	Parent *model.Identifier `yaml:"parent,omitempty"`

	// Expect is a subset of the entity payload (entity).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of entities or transactions.
	Count *int `yaml:"count,omitempty"`

	// IDs is the expected ordered child list (children).
	IDs []model.Identifier `yaml:"ids,omitempty"`

	// Values is the expected progress history (progress).
	Values []int `yaml:"values,omitempty"`

	// Closed is the expected session state (session).
	Closed *bool `yaml:"closed,omitempty"`
}

// Assertion types.
const (
	AssertEntity       = "entity"
	AssertAbsent       = "absent"
	AssertEntityCount  = "entity_count"
	AssertChildren     = "children"
	AssertProgress     = "progress"
	AssertSession      = "session"
	AssertTransactions = "transactions"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	ops := 0
	if step.Commit != nil {
		ops++
	}
	if step.Progress != nil {
		ops++
	}
	if step.Close {
		ops++
	}
	if ops != 1 {
		return fmt.Errorf("steps[%d]: exactly one of commit, progress or close is required", index)
	}

	if step.Commit != nil {
		for j, r := range step.Commit.Records {
			if r.Kind == "" {
				return fmt.Errorf("steps[%d].records[%d]: kind is required", index, j)
			}
			if r.ID == "" {
				return fmt.Errorf("steps[%d].records[%d]: id is required", index, j)
			}
		}
	}
	if step.Progress != nil {
		if p := *step.Progress; p < 0 || p > 100 {
			return fmt.Errorf("steps[%d]: progress %d outside [0,100]", index, p)
		}
		if step.ExpectError != "" {
			return fmt.Errorf("steps[%d]: progress is a notification and cannot expect an error", index)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEntity:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for entity", index)
		}
	case AssertAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for absent", index)
		}
	case AssertChildren:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for children", index)
		}
	case AssertEntityCount, AssertTransactions:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertProgress:
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for progress", index)
		}
	case AssertSession:
		if a.Closed == nil {
			return fmt.Errorf("assertions[%d]: closed is required for session", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// DefaultSession is the handshake used when a scenario does not override
// it.
func DefaultSession() protocol.OpenParams {
	return protocol.OpenParams{
		Protocol:      protocol.Version,
		Publisher:     protocol.Publisher{Name: "scenesync-harness", Version: "1.0.0"},
		Source:        protocol.Source{Name: "Harness", ID: "harness-source"},
		Project:       protocol.Project{ID: "harness-project", Name: "Harness", Server: "in-process"},
		User:          "harness",
		LengthUnit:    "meters",
		AxisInversion: "none",
	}
}

func (s SessionSpec) params() protocol.OpenParams {
	p := DefaultSession()
	if s.Protocol != "" {
		p.Protocol = s.Protocol
	}
	if s.Project != "" {
		p.Project.ID = s.Project
	}
	if s.Source != "" {
		p.Source.ID = s.Source
	}
	if s.User != "" {
		p.User = s.User
	}
	if s.Publisher != "" {
		p.Publisher.Name = s.Publisher
	}
	p.Rules = s.Rules
	return p
}
