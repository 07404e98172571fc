package model

// Reference is an identifier an entity points at together with the kind the
// target must have. The sync server resolves references at commit time.
type Reference struct {
	From Identifier `json:"from"`
	To   Identifier `json:"to"`
	Kind Kind       `json:"kind"`
}

// References lists the references made by e, including those made by the
// nested children of an Object, in tree order.
func References(e Entity) []Reference {
	var refs []Reference
	switch v := e.(type) {
	case *Object:
		v.Walk(func(n, _ *Object) bool {
			if n.MeshID != "" {
				refs = append(refs, Reference{From: n.ID, To: n.MeshID, Kind: KindMesh})
			}
			for _, m := range n.MaterialIDs {
				refs = append(refs, Reference{From: n.ID, To: m, Kind: KindMaterial})
			}
			return true
		})
	case *ObjectInstance:
		refs = append(refs, Reference{From: v.ID, To: v.ObjectID, Kind: KindObject})
	}
	return refs
}
