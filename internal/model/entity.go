package model

// Identifier is an opaque key, stable and unique within one export session.
// Entities reference each other by identifier rather than by ownership.
type Identifier string

// String returns the identifier value.
func (id Identifier) String() string {
	return string(id)
}

// Kind tags an entity variant on the wire.
type Kind string

const (
	KindMesh           Kind = "mesh"
	KindMaterial       Kind = "material"
	KindObject         Kind = "object"
	KindObjectInstance Kind = "object_instance"
)

// Valid reports whether k names a known entity variant.
func (k Kind) Valid() bool {
	switch k {
	case KindMesh, KindMaterial, KindObject, KindObjectInstance:
		return true
	}
	return false
}

// Entity is a sealed interface over Mesh, Material, Object and ObjectInstance.
type Entity interface {
	EntityID() Identifier
	Kind() Kind
	Validate() error
	entity()
}

// Parameter is a metadata value shown alongside an object.
type Parameter struct {
	Value   string `json:"value"`
	Group   string `json:"group"`
	Visible bool   `json:"visible"`
}

// NewParameter creates a Parameter.
func NewParameter(value, group string, visible bool) Parameter {
	return Parameter{Value: value, Group: group, Visible: visible}
}

// Metadata maps a key to its parameter.
type Metadata map[string]Parameter

// Clone returns an independent copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) validate(kind Kind, id Identifier) error {
	for k := range m {
		if k == "" {
			return invalid(ErrEmptyMetadataKey, kind, id, "metadata", "metadata key must not be empty")
		}
	}
	return nil
}
