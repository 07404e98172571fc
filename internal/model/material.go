package model

// Material describes surface appearance. Only the base colour is carried.
type Material struct {
	ID        Identifier `json:"id"`
	Name      string     `json:"name,omitempty"`
	BaseColor Color      `json:"base_color"`
}

// NewMaterial builds and validates a material.
func NewMaterial(id Identifier, name string, color Color) (*Material, error) {
	m := &Material{ID: id, Name: name, BaseColor: color}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Material) EntityID() Identifier { return m.ID }
func (m *Material) Kind() Kind           { return KindMaterial }
func (*Material) entity()                {}

// Validate checks the identifier.
func (m *Material) Validate() error {
	if m.ID == "" {
		return invalid(ErrEmptyIdentifier, KindMaterial, m.ID, "id", "identifier must not be empty")
	}
	return nil
}
