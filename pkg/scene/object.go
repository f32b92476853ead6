package scene

import (
	"github.com/chazu/orient/pkg/geom"
	"github.com/chazu/orient/pkg/kernel"
	"github.com/google/uuid"
)

// Kind enumerates the object types a document holds.
type Kind int

const (
	KindPoint    Kind = iota // single point
	KindLine                 // two-point line curve
	KindPolyline             // open curve through two or more points
	KindSolid                // kernel solid
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolyline:
		return "polyline"
	case KindSolid:
		return "solid"
	default:
		return "unknown"
	}
}

// Object is a snapshot of one document entry. Points holds the point for
// KindPoint, the endpoints for KindLine and the vertices for KindPolyline.
type Object struct {
	ID     uuid.UUID     `json:"id"`
	Kind   Kind          `json:"kind"`
	Name   string        `json:"name,omitempty"`
	Points []geom.Point3 `json:"points,omitempty"`
	Solid  kernel.Solid  `json:"-"`
}

// Label returns the name, or the first block of the ID when unnamed.
func (o Object) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID.String()[:8]
}

// clone copies the object with a fresh ID. Solids are immutable kernel
// values and are shared.
func (o *Object) clone() *Object {
	c := *o
	c.ID = uuid.New()
	c.Points = append([]geom.Point3(nil), o.Points...)
	return &c
}

func (o *Object) snapshot() Object {
	c := *o
	c.Points = append([]geom.Point3(nil), o.Points...)
	return c
}
