package orient

import (
	"fmt"

	"github.com/chazu/orient/pkg/geom"
	"github.com/google/uuid"
)

// SegmentProvider reads a curve as a directed segment. Curves that are not
// two-point segments fail with geom.ErrNotALine.
type SegmentProvider interface {
	Segment(id uuid.UUID) (geom.Segment, error)
}

// ResolveSegments reads the source and every target through p. Any curve
// that is not a line rejects the whole request, before anything is solved.
func ResolveSegments(p SegmentProvider, source uuid.UUID, targets []uuid.UUID) (geom.Segment, []geom.Segment, error) {
	src, err := p.Segment(source)
	if err != nil {
		return geom.Segment{}, nil, fmt.Errorf("source line: %w", err)
	}
	out := make([]geom.Segment, 0, len(targets))
	for i, id := range targets {
		s, err := p.Segment(id)
		if err != nil {
			return geom.Segment{}, nil, fmt.Errorf("target line %d: %w", i+1, err)
		}
		out = append(out, s)
	}
	return src, out, nil
}
