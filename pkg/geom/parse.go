package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePoint parses "x,y,z" into a point. Whitespace around components is ignored.
func ParsePoint(s string) (Point3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Point3{}, fmt.Errorf("point %q: expected x,y,z", s)
	}
	var c [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Point3{}, fmt.Errorf("point %q: component %d: %w", s, i, err)
		}
		c[i] = f
	}
	return Point3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// ParseSegment parses "x,y,z x,y,z" (start, then end) into a segment.
func ParseSegment(s string) (Segment, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Segment{}, fmt.Errorf("segment %q: expected two points separated by a space", s)
	}
	start, err := ParsePoint(fields[0])
	if err != nil {
		return Segment{}, fmt.Errorf("segment start: %w", err)
	}
	end, err := ParsePoint(fields[1])
	if err != nil {
		return Segment{}, fmt.Errorf("segment end: %w", err)
	}
	return Segment{Start: start, End: end}, nil
}
