package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Compound groups existing faces into a new solid handle. The faces are
// shared, not copied, so their keys stay the same as in the source solid.
type Compound struct {
	id    SolidID
	faces []Face
}

// Compile-time interface check.
var _ Solid = (*Compound)(nil)

// NewCompound returns a compound holding faces in the given order.
func NewCompound(faces ...Face) *Compound {
	return &Compound{
		id:    NewSolidID(),
		faces: append([]Face(nil), faces...),
	}
}

// ID returns the snapshot identity of the compound.
func (c *Compound) ID() SolidID { return c.id }

// Faces returns the faces in insertion order.
func (c *Compound) Faces() []Face {
	return append([]Face(nil), c.faces...)
}

// Len returns the number of faces.
func (c *Compound) Len() int { return len(c.faces) }

// BoundingBox returns the union of the face bounds.
func (c *Compound) BoundingBox() r3.Box {
	b := EmptyBox()
	for _, f := range c.faces {
		b = UnionBox(b, f.Bounds())
	}
	return b
}
