package model

import (
	"fmt"
	"strings"
)

// Object is a node of the scene tree. It optionally references a mesh and
// its materials by identifier and owns its children directly.
//
// Children form a tree: an object never (transitively) contains itself and
// no node appears twice.
type Object struct {
	ID          Identifier   `json:"id"`
	Name        string       `json:"name"`
	MeshID      Identifier   `json:"mesh_id,omitempty"`
	MaterialIDs []Identifier `json:"material_ids,omitempty"`
	Transform   Transform    `json:"transform"`
	Children    []*Object    `json:"children,omitempty"`
	Metadata    Metadata     `json:"metadata,omitempty"`
}

// ObjectOption configures an Object in NewObject.
type ObjectOption func(*Object)

// WithMesh sets the referenced mesh.
func WithMesh(id Identifier) ObjectOption {
	return func(o *Object) { o.MeshID = id }
}

// WithMaterials appends material references in order.
func WithMaterials(ids ...Identifier) ObjectOption {
	return func(o *Object) { o.MaterialIDs = append(o.MaterialIDs, ids...) }
}

// WithTransform replaces the default identity transform.
func WithTransform(t Transform) ObjectOption {
	return func(o *Object) { o.Transform = t }
}

// WithMetadata sets one metadata entry.
func WithMetadata(key string, p Parameter) ObjectOption {
	return func(o *Object) {
		if o.Metadata == nil {
			o.Metadata = make(Metadata)
		}
		o.Metadata[key] = p
	}
}

// WithChildren appends children in order.
func WithChildren(children ...*Object) ObjectOption {
	return func(o *Object) { o.Children = append(o.Children, children...) }
}

// NewObject builds and validates an object with an identity transform.
func NewObject(id Identifier, name string, opts ...ObjectOption) (*Object, error) {
	o := &Object{
		ID:        id,
		Name:      name,
		Transform: IdentityTransform(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Object) EntityID() Identifier { return o.ID }
func (o *Object) Kind() Kind           { return KindObject }
func (*Object) entity()                {}

// AddChild appends child, failing if that would create a cycle or place a
// node in the tree twice. On failure o is left unchanged.
func (o *Object) AddChild(child *Object) error {
	if child == nil {
		return invalid(ErrNilChild, KindObject, o.ID, "children", "child must not be nil")
	}
	if child == o || child.contains(o, o.ID) {
		return invalid(ErrCycle, KindObject, o.ID, "children",
			"adding %q would make the object contain itself", child.ID)
	}
	if o.contains(child, child.ID) {
		return invalid(ErrDuplicate, KindObject, o.ID, "children",
			"%q is already part of this tree", child.ID)
	}
	o.Children = append(o.Children, child)
	return nil
}

// contains reports whether target (by pointer or by identifier) appears in
// o's subtree, o included.
func (o *Object) contains(target *Object, id Identifier) bool {
	seen := make(map[*Object]bool)
	var walk func(n *Object) bool
	walk = func(n *Object) bool {
		if n == nil || seen[n] {
			return false
		}
		seen[n] = true
		if n == target || (id != "" && n.ID == id) {
			return true
		}
		for _, c := range n.Children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(o)
}

// Walk visits o and its descendants depth-first, passing each node's parent
// (nil for o). Walk stops early if fn returns false.
func (o *Object) Walk(fn func(node, parent *Object) bool) {
	var walk func(n, p *Object) bool
	walk = func(n, p *Object) bool {
		if !fn(n, p) {
			return false
		}
		for _, c := range n.Children {
			if !walk(c, n) {
				return false
			}
		}
		return true
	}
	walk(o, nil)
}

// Validate checks identifiers, references, metadata and the tree shape.
func (o *Object) Validate() error {
	seenNode := make(map[*Object]bool)
	seenID := make(map[Identifier]bool)
	return o.validateNode(nil, seenNode, seenID, map[Identifier]bool{})
}

func (o *Object) validateNode(path []string, seenNode map[*Object]bool, seenID, ancestors map[Identifier]bool) error {
	field := func(name string) string {
		if len(path) == 0 {
			return name
		}
		return fmt.Sprintf("%s.%s", joinPath(path), name)
	}
	if o.ID == "" {
		return invalid(ErrEmptyIdentifier, KindObject, o.ID, field("id"), "identifier must not be empty")
	}
	if ancestors[o.ID] {
		return invalid(ErrCycle, KindObject, o.ID, field("children"), "object contains itself")
	}
	if seenNode[o] || seenID[o.ID] {
		return invalid(ErrDuplicate, KindObject, o.ID, field("id"), "object appears more than once in the tree")
	}
	seenNode[o] = true
	seenID[o.ID] = true

	if !o.Transform.finite() {
		return invalid(ErrNonFinite, KindObject, o.ID, field("transform"), "component is not finite")
	}
	materials := make(map[Identifier]bool, len(o.MaterialIDs))
	for i, m := range o.MaterialIDs {
		if m == "" {
			return invalid(ErrEmptyIdentifier, KindObject, o.ID, field(fmt.Sprintf("material_ids[%d]", i)),
				"identifier must not be empty")
		}
		if materials[m] {
			return invalid(ErrDuplicate, KindObject, o.ID, field(fmt.Sprintf("material_ids[%d]", i)),
				"material %q listed twice", m)
		}
		materials[m] = true
	}
	if err := o.Metadata.validate(KindObject, o.ID); err != nil {
		return err
	}

	ancestors[o.ID] = true
	defer delete(ancestors, o.ID)
	for i, c := range o.Children {
		childPath := append(append([]string(nil), path...), fmt.Sprintf("children[%d]", i))
		if c == nil {
			return invalid(ErrNilChild, KindObject, o.ID, joinPath(childPath), "child must not be nil")
		}
		if err := c.validateNode(childPath, seenNode, seenID, ancestors); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
