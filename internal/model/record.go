package model

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/scenesync/internal/canon"
)

// Record is the wire form of an entity: its kind, identifier and payload.
// Data is a detached Value tree, so mutating the source entity after Encode
// does not affect the record.
type Record struct {
	Kind Kind         `json:"kind"`
	ID   Identifier   `json:"id"`
	Data canon.Object `json:"data"`
}

// FlatRecord is a record with nested children removed. Parent is the
// identifier of the enclosing object, or empty for a root.
type FlatRecord struct {
	Record
	Parent Identifier `json:"parent,omitempty"`
}

// Encode validates e and converts it to a Record.
func Encode(e Entity) (Record, error) {
	if e == nil {
		return Record{}, fmt.Errorf("encode: nil entity")
	}
	if err := e.Validate(); err != nil {
		return Record{}, err
	}
	v, err := canon.ValueOf(e)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s %q: %w", e.Kind(), e.EntityID(), err)
	}
	data, ok := v.(canon.Object)
	if !ok {
		return Record{}, fmt.Errorf("encode %s %q: payload is %T, want object", e.Kind(), e.EntityID(), v)
	}
	return Record{Kind: e.Kind(), ID: e.EntityID(), Data: data}, nil
}

// Decode converts r back into its entity and validates it.
func Decode(r Record) (Entity, error) {
	var e Entity
	switch r.Kind {
	case KindMesh:
		e = &Mesh{}
	case KindMaterial:
		e = &Material{}
	case KindObject:
		e = &Object{}
	case KindObjectInstance:
		e = &ObjectInstance{}
	default:
		return nil, invalid(ErrUnknownKind, r.Kind, r.ID, "kind", "unknown entity kind %q", r.Kind)
	}

	raw, err := canon.Marshal(r.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", r.Kind, r.ID, err)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", r.Kind, r.ID, err)
	}
	if e.EntityID() != r.ID {
		return nil, invalid(ErrIdentifierMismatch, r.Kind, r.ID, "id",
			"payload identifier %q does not match record", e.EntityID())
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Hash returns the content hash of the record.
func (r Record) Hash() (string, error) {
	return ContentHash(r)
}

// Flatten splits an object record into one record per node of its tree in
// depth-first order, each without its "children" key. Other kinds yield a
// single root record.
func Flatten(r Record) ([]FlatRecord, error) {
	if r.Kind != KindObject {
		return []FlatRecord{{Record: r}}, nil
	}
	var out []FlatRecord
	if err := flattenObject(r.Data, "", &out); err != nil {
		return nil, fmt.Errorf("flatten %q: %w", r.ID, err)
	}
	return out, nil
}

func flattenObject(data canon.Object, parent Identifier, out *[]FlatRecord) error {
	id, ok := data["id"].(canon.String)
	if !ok || id == "" {
		return fmt.Errorf("object node without identifier")
	}
	node := make(canon.Object, len(data))
	for k, v := range data {
		if k != "children" {
			node[k] = v
		}
	}
	*out = append(*out, FlatRecord{
		Record: Record{Kind: KindObject, ID: Identifier(id), Data: node},
		Parent: parent,
	})

	children, _ := data["children"].(canon.Array)
	for i, c := range children {
		child, ok := c.(canon.Object)
		if !ok {
			return fmt.Errorf("children[%d] is %T, want object", i, c)
		}
		if err := flattenObject(child, Identifier(id), out); err != nil {
			return err
		}
	}
	return nil
}
