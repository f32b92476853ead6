package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/orient/pkg/geom"
	"github.com/chazu/orient/pkg/kernel"
	"github.com/chazu/orient/pkg/orient"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms orient script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: allow-chords -> allow_chords
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction.
type sexpVec3 struct {
	vec geom.Point3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid that has not been added to the document.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string { return "(solid)" }
func (s *sexpSolid) Type() *zygo.RegisteredType            { return nil }

// sexpHandle refers to an object in the document.
type sexpHandle struct {
	id   uuid.UUID
	name string // human-readable name for error messages
}

func (h *sexpHandle) SexpString(ps *zygo.PrintState) string {
	if h.name != "" {
		return fmt.Sprintf("(object %q)", h.name)
	}
	return fmt.Sprintf("(object %s)", h.id.String()[:8])
}
func (h *sexpHandle) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// optName reads the optional :name keyword.
func (a kwArgs) optName(fn string) (string, error) {
	v, ok := a.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", fn, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Point3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Point3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a kernel solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toHandle extracts an object ID from a sexpHandle.
func toHandle(s zygo.Sexp) (uuid.UUID, error) {
	if h, ok := s.(*sexpHandle); ok {
		return h.id, nil
	}
	return uuid.Nil, fmt.Errorf("expected object, got %T (%s)", s, s.SexpString(nil))
}

// toHandles accepts a single handle or a list/array of handles.
func toHandles(s zygo.Sexp) ([]uuid.UUID, error) {
	if id, err := toHandle(s); err == nil {
		return []uuid.UUID{id}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for i, item := range items {
		id, err := toHandle(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// errNoKernel is returned by solid builtins when the engine has no kernel.
var errNoKernel = errors.New("no geometry kernel configured")

// registerBuiltins installs the orient script builtins into a zygomys
// environment. Objects are added to p.Doc and orient calls are appended to
// p.Jobs as evaluation proceeds.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k kernel.Kernel, p *Program) {
	doc := p.Doc

	handle := func(id uuid.UUID, name string) zygo.Sexp {
		return &sexpHandle{id: id, name: name}
	}

	// kernelFn wraps builtins that need a kernel.
	kernelFn := func(fn func(args []zygo.Sexp) (zygo.Sexp, error)) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if k == nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, errNoKernel)
			}
			return fn(args)
		}
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.Point3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (point (vec3 0 0 0) :name "origin")
	// -----------------------------------------------------------------------
	env.AddFunction("point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("point requires one vec3, got %d arguments", len(pa.positional))
		}
		pt, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		n, err := pa.optName("point")
		if err != nil {
			return zygo.SexpNull, err
		}
		return handle(doc.AddPoint(n, pt), n), nil
	})

	// -----------------------------------------------------------------------
	// (line (vec3 0 0 0) (vec3 0 0 10) :name "ref")
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("line requires start and end vec3, got %d arguments", len(pa.positional))
		}
		start, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: start: %w", err)
		}
		end, err := toVec3(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: end: %w", err)
		}
		n, err := pa.optName("line")
		if err != nil {
			return zygo.SexpNull, err
		}
		return handle(doc.AddLine(n, start, end), n), nil
	})

	// -----------------------------------------------------------------------
	// (polyline (vec3 ...) (vec3 ...) (vec3 ...) :name "rail")
	// -----------------------------------------------------------------------
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pts := make([]geom.Point3, 0, len(pa.positional))
		for i, a := range pa.positional {
			pt, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyline: vertex %d: %w", i, err)
			}
			pts = append(pts, pt)
		}
		n, err := pa.optName("polyline")
		if err != nil {
			return zygo.SexpNull, err
		}
		id, err := doc.AddPolyline(n, pts...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline: %w", err)
		}
		return handle(id, n), nil
	})

	// -----------------------------------------------------------------------
	// (box 10 20 30)
	// -----------------------------------------------------------------------
	env.AddFunction("box", kernelFn(func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires exactly 3 sizes, got %d", len(args))
		}
		var d [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size %d: %w", i, err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("box: size %d must be positive, got %g", i, f)
			}
			d[i] = f
		}
		return &sexpSolid{solid: k.Box(d[0], d[1], d[2])}, nil
	}))

	// -----------------------------------------------------------------------
	// (cylinder :height 100 :radius 5 :segments 32)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", kernelFn(func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var height, radius float64
		segments := 32
		for _, kw := range []string{"height", "radius"} {
			v, ok := pa.kw[kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("cylinder requires :%s", kw)
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: %s: %w", kw, err)
			}
			if f <= 0 {
				return zygo.SexpNull, fmt.Errorf("cylinder: %s must be positive, got %g", kw, f)
			}
			if kw == "height" {
				height = f
			} else {
				radius = f
			}
		}
		if v, ok := pa.kw["segments"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: segments: %w", err)
			}
			segments = int(f)
		}
		return &sexpSolid{solid: k.Cylinder(height, radius, segments)}, nil
	}))

	// -----------------------------------------------------------------------
	// (union a b) (difference a b) (intersection a b)
	// -----------------------------------------------------------------------
	boolean := func(op string, fn func(a, b kernel.Solid) kernel.Solid) {
		env.AddFunction(op, kernelFn(func(args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 2 solids, got %d", op, len(args))
			}
			a, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: first: %w", op, err)
			}
			b, err := toSolid(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: second: %w", op, err)
			}
			return &sexpSolid{solid: fn(a, b)}, nil
		}))
	}
	boolean("union", func(a, b kernel.Solid) kernel.Solid { return k.Union(a, b) })
	boolean("difference", func(a, b kernel.Solid) kernel.Solid { return k.Difference(a, b) })
	boolean("intersection", func(a, b kernel.Solid) kernel.Solid { return k.Intersection(a, b) })

	// -----------------------------------------------------------------------
	// (translate solid (vec3 x y z)) (rotate solid (vec3 rx ry rz))
	// -----------------------------------------------------------------------
	placement := func(op string, fn func(s kernel.Solid, v geom.Vector3) kernel.Solid) {
		env.AddFunction(op, kernelFn(func(args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3, got %d arguments", op, len(args))
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			return &sexpSolid{solid: fn(s, v)}, nil
		}))
	}
	placement("translate", func(s kernel.Solid, v geom.Vector3) kernel.Solid {
		return k.Translate(s, v.X, v.Y, v.Z)
	})
	placement("rotate", func(s kernel.Solid, v geom.Vector3) kernel.Solid {
		return k.Rotate(s, v.X, v.Y, v.Z)
	})

	// -----------------------------------------------------------------------
	// (solid "post" (box 10 10 100))
	// -----------------------------------------------------------------------
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name and a solid expression")
		}
		n, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}
		s, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: %w", err)
		}
		id, err := doc.AddSolid(n, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: %w", err)
		}
		return handle(id, n), nil
	})

	// -----------------------------------------------------------------------
	// (object "name")
	// -----------------------------------------------------------------------
	env.AddFunction("object", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("object requires a name argument")
		}
		n, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object: name: %w", err)
		}
		id, ok := doc.Lookup(n)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("object: no object named %q", n)
		}
		return handle(id, n), nil
	})

	// -----------------------------------------------------------------------
	// (orient :objects (list a b) :source ref :targets (list t1 t2) :copy true)
	// -----------------------------------------------------------------------
	env.AddFunction("orient", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		job := Job{Index: len(p.Jobs)}

		if v, ok := pa.kw["objects"]; ok {
			ids, err := toHandles(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("orient: objects: %w", err)
			}
			job.Objects = orient.ObjectSet(ids)
		}

		v, ok := pa.kw["source"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("orient requires :source")
		}
		src, err := toHandle(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("orient: source: %w", err)
		}
		job.Source = src

		v, ok = pa.kw["targets"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("orient requires :targets")
		}
		job.Targets, err = toHandles(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("orient: targets: %w", err)
		}

		if v, ok := pa.kw["copy"]; ok {
			c, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("orient: copy: %w", err)
			}
			job.Copy = &c
		}

		p.Jobs = append(p.Jobs, job)
		return &zygo.SexpInt{Val: int64(job.Index)}, nil
	})
}
