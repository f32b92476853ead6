package orient

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/chazu/orient/pkg/geom"
	"github.com/google/uuid"
)

// ErrDuplicate wraps a host failure to copy the object set.
var ErrDuplicate = errors.New("duplicate failed")

// ErrTransform wraps a host failure to transform objects.
var ErrTransform = errors.New("transform failed")

// ObjectSet is an ordered group of opaque object handles owned by the host.
type ObjectSet []uuid.UUID

// ObjectTransformer is the host capability the batch needs. Implementations
// own the geometry behind the handles.
type ObjectTransformer interface {
	// Duplicate copies every object in the set and returns the new handles
	// in the same order.
	Duplicate(objects ObjectSet) (ObjectSet, error)
	// TransformInPlace applies t to every object in the set.
	TransformInPlace(objects ObjectSet, t *Transform) error
}

// Result is the outcome of orienting onto one target.
type Result struct {
	Index   int          `json:"index"`
	Target  geom.Segment `json:"target"`
	Copied  bool         `json:"copied"`
	Success bool         `json:"success"`
	// Objects holds the duplicated handles. It is empty when the originals
	// were moved in place.
	Objects ObjectSet `json:"objects"`
	Err     error     `json:"-"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Results   []Result
	Succeeded int
}

// Total returns the number of targets processed.
func (s Summary) Total() int { return len(s.Results) }

// Produced returns the handles created by successful copies, in target order.
func (s Summary) Produced() ObjectSet {
	var out ObjectSet
	for _, r := range s.Results {
		if r.Success && r.Copied {
			out = append(out, r.Objects...)
		}
	}
	return out
}

// Failed returns the results that did not succeed.
func (s Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Orienter applies source-to-target transforms through a host.
type Orienter struct {
	host   ObjectTransformer
	logger *log.Logger
}

// Option configures an Orienter.
type Option func(*Orienter)

// WithLogger sets the logger used for per-target progress.
func WithLogger(l *log.Logger) Option {
	return func(o *Orienter) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrienter returns an Orienter that mutates geometry through host.
func NewOrienter(host ObjectTransformer, opts ...Option) *Orienter {
	o := &Orienter{
		host:   host,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Orient applies one transform per target and returns the results in target
// order. With copyPolicy false, every target except the last receives a
// copy and the last one moves objects in place.
func (o *Orienter) Orient(objects ObjectSet, source geom.Segment, targets []geom.Segment, copyPolicy bool) Summary {
	b := o.NewBatch(objects, source, targets, copyPolicy)
	for {
		if _, ok := b.Next(); !ok {
			break
		}
	}
	return b.Summary()
}

// OrientOne orients objects onto a single target. index is recorded in the
// result as given.
func (o *Orienter) OrientOne(objects ObjectSet, source, target geom.Segment, copyObjects bool, index int) Result {
	res := Result{Index: index, Target: target, Copied: copyObjects}

	t, err := Solve(source, target)
	if err != nil {
		res.Err = err
		return res
	}

	// Nothing to move or copy.
	if len(objects) == 0 {
		res.Success = true
		return res
	}

	if !copyObjects {
		if err := o.host.TransformInPlace(objects, t); err != nil {
			res.Err = fmt.Errorf("%w: %w", ErrTransform, err)
			return res
		}
		res.Success = true
		return res
	}

	dup, err := o.host.Duplicate(objects)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrDuplicate, err)
		return res
	}
	res.Objects = dup
	if err := o.host.TransformInPlace(dup, t); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrTransform, err)
		return res
	}
	res.Success = true
	return res
}

// Batch steps through targets one at a time so a caller can stop between
// targets. It is not safe for concurrent use.
type Batch struct {
	o          *Orienter
	objects    ObjectSet
	source     geom.Segment
	targets    []geom.Segment
	copyPolicy bool

	next    int
	summary Summary
}

// NewBatch prepares a batch without touching the host.
func (o *Orienter) NewBatch(objects ObjectSet, source geom.Segment, targets []geom.Segment, copyPolicy bool) *Batch {
	return &Batch{
		o:          o,
		objects:    objects,
		source:     source,
		targets:    targets,
		copyPolicy: copyPolicy,
		summary:    Summary{Results: make([]Result, 0, len(targets))},
	}
}

// ShouldCopy reports whether target i of n is served by a copy.
func ShouldCopy(copyPolicy bool, i, n int) bool {
	return copyPolicy || i < n-1
}

// Next orients onto the next target. It returns false once every target
// has been processed.
func (b *Batch) Next() (Result, bool) {
	if b.next >= len(b.targets) {
		return Result{}, false
	}
	i, n := b.next, len(b.targets)
	b.next++

	res := b.o.OrientOne(b.objects, b.source, b.targets[i], ShouldCopy(b.copyPolicy, i, n), i)
	b.summary.Results = append(b.summary.Results, res)
	if res.Success {
		b.summary.Succeeded++
		b.o.logger.Debug("oriented target", "target", i+1, "of", n, "copied", res.Copied, "objects", len(res.Objects))
	} else {
		b.o.logger.Warn("target failed", "target", i+1, "of", n, "err", res.Err)
	}
	return res, true
}

// Remaining returns the number of targets not yet processed.
func (b *Batch) Remaining() int {
	return len(b.targets) - b.next
}

// Summary returns the results so far.
func (b *Batch) Summary() Summary {
	return b.summary
}
