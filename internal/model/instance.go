package model

// ObjectInstance places an existing Object (its definition) with its own
// transform and metadata.
type ObjectInstance struct {
	ID        Identifier `json:"id"`
	Name      string     `json:"name"`
	ObjectID  Identifier `json:"object_id"`
	Transform Transform  `json:"transform"`
	Metadata  Metadata   `json:"metadata,omitempty"`
}

// InstanceOption configures an ObjectInstance in NewObjectInstance.
type InstanceOption func(*ObjectInstance)

// WithInstanceTransform overrides the instance transform.
func WithInstanceTransform(t Transform) InstanceOption {
	return func(i *ObjectInstance) { i.Transform = t }
}

// WithInstanceMetadata sets the instance metadata to a copy of m.
func WithInstanceMetadata(m Metadata) InstanceOption {
	return func(i *ObjectInstance) { i.Metadata = m.Clone() }
}

// NewObjectInstance builds and validates an instance of the object
// identified by definition.
func NewObjectInstance(id Identifier, name string, definition Identifier, opts ...InstanceOption) (*ObjectInstance, error) {
	inst := &ObjectInstance{
		ID:        id,
		Name:      name,
		ObjectID:  definition,
		Transform: IdentityTransform(),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (i *ObjectInstance) EntityID() Identifier { return i.ID }
func (i *ObjectInstance) Kind() Kind           { return KindObjectInstance }
func (*ObjectInstance) entity()                {}

// Validate checks identifiers, transform and metadata.
func (i *ObjectInstance) Validate() error {
	if i.ID == "" {
		return invalid(ErrEmptyIdentifier, KindObjectInstance, i.ID, "id", "identifier must not be empty")
	}
	if i.ObjectID == "" {
		return invalid(ErrEmptyIdentifier, KindObjectInstance, i.ID, "object_id", "identifier must not be empty")
	}
	if !i.Transform.finite() {
		return invalid(ErrNonFinite, KindObjectInstance, i.ID, "transform", "component is not finite")
	}
	return i.Metadata.validate(KindObjectInstance, i.ID)
}
