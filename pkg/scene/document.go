package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/orient/pkg/geom"
	"github.com/chazu/orient/pkg/kernel"
	"github.com/chazu/orient/pkg/orient"
	"github.com/google/uuid"
)

// ErrNotFound is returned for handles the document does not hold.
var ErrNotFound = errors.New("object not found")

// ErrNoKernel is returned when a solid is added or transformed in a document
// created without a kernel.
var ErrNoKernel = errors.New("document has no geometry kernel")

// Compile-time interface checks.
var (
	_ orient.ObjectTransformer = (*Document)(nil)
	_ orient.SegmentProvider   = (*Document)(nil)
)

// Document holds objects in insertion order. It is safe for concurrent use.
type Document struct {
	mu      sync.RWMutex
	objects map[uuid.UUID]*Object
	order   []uuid.UUID
	names   map[string]uuid.UUID

	kernel kernel.Kernel
	chords bool
}

// Option configures a Document.
type Option func(*Document)

// WithKernel sets the kernel used for solids.
func WithKernel(k kernel.Kernel) Option {
	return func(d *Document) { d.kernel = k }
}

// WithChords makes Segment accept polylines, reading them as the chord from
// first to last vertex.
func WithChords(on bool) Option {
	return func(d *Document) { d.chords = on }
}

// New returns an empty document.
func New(opts ...Option) *Document {
	d := &Document{
		objects: make(map[uuid.UUID]*Object),
		names:   make(map[string]uuid.UUID),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Kernel returns the document's kernel, or nil.
func (d *Document) Kernel() kernel.Kernel {
	return d.kernel
}

// add registers o. Caller holds the write lock. The first object with a
// given name owns it.
func (d *Document) add(o *Object) uuid.UUID {
	d.objects[o.ID] = o
	d.order = append(d.order, o.ID)
	if o.Name != "" {
		if _, taken := d.names[o.Name]; !taken {
			d.names[o.Name] = o.ID
		}
	}
	return o.ID
}

// AddPoint adds a point object.
func (d *Document) AddPoint(name string, p geom.Point3) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(&Object{ID: uuid.New(), Kind: KindPoint, Name: name, Points: []geom.Point3{p}})
}

// AddLine adds a two-point line curve.
func (d *Document) AddLine(name string, start, end geom.Point3) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(&Object{ID: uuid.New(), Kind: KindLine, Name: name, Points: []geom.Point3{start, end}})
}

// AddPolyline adds an open curve through pts. At least two points are required.
func (d *Document) AddPolyline(name string, pts ...geom.Point3) (uuid.UUID, error) {
	if len(pts) < 2 {
		return uuid.Nil, fmt.Errorf("polyline %q: need at least 2 points, got %d", name, len(pts))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(&Object{
		ID:     uuid.New(),
		Kind:   KindPolyline,
		Name:   name,
		Points: append([]geom.Point3(nil), pts...),
	}), nil
}

// AddSolid adds a kernel solid.
func (d *Document) AddSolid(name string, s kernel.Solid) (uuid.UUID, error) {
	if d.kernel == nil {
		return uuid.Nil, fmt.Errorf("solid %q: %w", name, ErrNoKernel)
	}
	if s == nil {
		return uuid.Nil, fmt.Errorf("solid %q: nil solid", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(&Object{ID: uuid.New(), Kind: KindSolid, Name: name, Solid: s}), nil
}

// Get returns a snapshot of the object with the given handle.
func (d *Document) Get(id uuid.UUID) (Object, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.objects[id]
	if !ok {
		return Object{}, false
	}
	return o.snapshot(), true
}

// Lookup returns the handle of the first object with the given name.
func (d *Document) Lookup(name string) (uuid.UUID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.names[name]
	return id, ok
}

// Objects returns snapshots of every object in insertion order.
func (d *Document) Objects() []Object {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Object, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.objects[id].snapshot())
	}
	return out
}

// Len returns the number of objects.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.objects)
}

// Segment reads a line curve as a directed segment. Polylines are accepted
// as their end-to-end chord only when chords are enabled.
func (d *Document) Segment(id uuid.UUID) (geom.Segment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.objects[id]
	if !ok {
		return geom.Segment{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	switch {
	case o.Kind == KindLine:
		return geom.NewSegment(o.Points[0], o.Points[1]), nil
	case o.Kind == KindPolyline && d.chords:
		return geom.NewSegment(o.Points[0], o.Points[len(o.Points)-1]), nil
	}
	return geom.Segment{}, fmt.Errorf("%s %s: %w", o.Kind, o.Label(), geom.ErrNotALine)
}

// Duplicate copies every object in the set and returns the new handles in
// the same order. Nothing is copied if any handle is unknown.
func (d *Document) Duplicate(set orient.ObjectSet) (orient.ObjectSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked(set); err != nil {
		return nil, err
	}
	out := make(orient.ObjectSet, 0, len(set))
	for _, id := range set {
		out = append(out, d.add(d.objects[id].clone()))
	}
	return out, nil
}

// TransformInPlace applies t to every object in the set. Nothing is changed
// if any handle is unknown.
func (d *Document) TransformInPlace(set orient.ObjectSet, t *orient.Transform) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkLocked(set); err != nil {
		return err
	}
	for _, id := range set {
		if d.objects[id].Kind == KindSolid && d.kernel == nil {
			return fmt.Errorf("%s: %w", d.objects[id].Label(), ErrNoKernel)
		}
	}
	for _, id := range set {
		o := d.objects[id]
		if o.Kind == KindSolid {
			o.Solid = orientSolid(d.kernel, o.Solid, t)
			continue
		}
		for i, p := range o.Points {
			o.Points[i] = t.Apply(p)
		}
	}
	return nil
}

func (d *Document) checkLocked(set orient.ObjectSet) error {
	for _, id := range set {
		if _, ok := d.objects[id]; !ok {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
	}
	return nil
}

// orientSolid applies t through the kernel in the order the transform is
// defined: move the pivot to the origin, scale, rotate, move to the target.
func orientSolid(k kernel.Kernel, s kernel.Solid, t *orient.Transform) kernel.Solid {
	o, a, tg := t.Origin(), t.Axis(), t.Target()
	s = k.Translate(s, -o.X, -o.Y, -o.Z)
	if t.Scale() != 1 {
		s = k.Scale(s, t.Scale())
	}
	if t.Angle() != 0 {
		s = k.RotateAxis(s, [3]float64{a.X, a.Y, a.Z}, t.Angle())
	}
	return k.Translate(s, tg.X, tg.Y, tg.Z)
}
