package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/quarry/pkg/csg"
	"github.com/go-gl/mathgl/mgl64"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: auto-uv -> auto_uv
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

// sexpMaterial wraps a scene material so it can be passed between builtins.
type sexpMaterial struct {
	m *csg.Material
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.m.Name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an mgl64.Vec3.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPlane wraps a csg.Plane returned from `plane`.
type sexpPlane struct {
	p csg.Plane
}

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(plane (vec3 %g %g %g) %g)", p.p.N.X(), p.p.N.Y(), p.p.N.Z(), p.p.D)
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

// sexpShape references a brush that has been added to the scene.
type sexpShape struct {
	s *csg.BrushShape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	if s.s.Name != "" {
		return fmt.Sprintf("(shape %q)", s.s.Name)
	}
	return fmt.Sprintf("(shape #%d)", s.s.UID())
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

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

// has reports whether keyword name was given, with or without a value.
func (a kwArgs) has(name string) bool {
	_, ok := a.kw[name]
	return ok
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A keyword followed by another keyword, or by nothing, is a flag and
// maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
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

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
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
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toColor accepts an integer or a hex string such as "#80ff80ff" (RGBA).
func toColor(s zygo.Sexp) (uint32, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		if v.Val < 0 || v.Val > 0xffffffff {
			return 0, fmt.Errorf("color %d out of range", v.Val)
		}
		return uint32(v.Val), nil
	case *zygo.SexpStr:
		hex := strings.TrimPrefix(v.S, "#")
		if len(hex) == 6 {
			hex += "ff"
		}
		c, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || len(hex) != 8 {
			return 0, fmt.Errorf("invalid color %q, expected #rrggbb or #rrggbbaa", v.S)
		}
		return uint32(c), nil
	}
	return 0, fmt.Errorf("expected color, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toVec2 extracts a pair of numbers from a list or array.
func toVec2(s zygo.Sexp) (mgl64.Vec2, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return mgl64.Vec2{}, err
	}
	if len(items) != 2 {
		return mgl64.Vec2{}, fmt.Errorf("expected 2 numbers, got %d", len(items))
	}
	var v mgl64.Vec2
	for i, item := range items {
		if v[i], err = toFloat64(item); err != nil {
			return mgl64.Vec2{}, err
		}
	}
	return v, nil
}

// toMaterial extracts a scene material from a sexpMaterial.
func toMaterial(s zygo.Sexp) (*csg.Material, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.m, nil
	}
	return nil, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

// toPlane extracts a csg.Plane from a sexpPlane.
func toPlane(s zygo.Sexp) (csg.Plane, error) {
	if p, ok := s.(*sexpPlane); ok {
		return p.p, nil
	}
	return csg.Plane{}, fmt.Errorf("expected plane, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts a scene shape from a sexpShape.
func toShape(s zygo.Sexp) (*csg.BrushShape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.s, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
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
// Shape construction
// ---------------------------------------------------------------------------

// brushOptions converts the keyword arguments shared by every shape
// builtin into brush options:
//
//	:name "room" :solid | :empty :at (vec3 ...) :material m
//	:color "#rrggbbaa" :auto-uv false
func brushOptions(pa kwArgs) ([]csg.BrushOption, error) {
	var opts []csg.BrushOption

	if pa.has("solid") && pa.has("empty") {
		return nil, fmt.Errorf(":solid and :empty are exclusive")
	}
	if pa.has("solid") {
		opts = append(opts, csg.WithVolume(csg.Solid))
	}
	if pa.has("empty") {
		opts = append(opts, csg.WithVolume(csg.Empty))
	}
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return nil, fmt.Errorf("name: %w", err)
		}
		opts = append(opts, csg.WithName(s))
	}
	if v, ok := pa.kw["at"]; ok {
		at, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("at: %w", err)
		}
		opts = append(opts, csg.WithTransform(mgl64.Translate3D(at.X(), at.Y(), at.Z())))
	}
	if v, ok := pa.kw["material"]; ok {
		m, err := toMaterial(v)
		if err != nil {
			return nil, fmt.Errorf("material: %w", err)
		}
		opts = append(opts, csg.WithMaterial(m))
	}
	if v, ok := pa.kw["color"]; ok {
		c, err := toColor(v)
		if err != nil {
			return nil, fmt.Errorf("color: %w", err)
		}
		opts = append(opts, csg.WithColor(c))
	}
	if v, ok := pa.kw["auto-uv"]; ok {
		on, err := toBool(v)
		if err != nil {
			return nil, fmt.Errorf("auto-uv: %w", err)
		}
		opts = append(opts, csg.WithAutoUV(on))
	}
	return opts, nil
}

// addBrush builds a brush from planes and the shared keyword arguments
// and adds it to the scene.
func addBrush(sc *csg.Scene, who string, planes []csg.Plane, pa kwArgs) (zygo.Sexp, error) {
	opts, err := brushOptions(pa)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", who, err)
	}
	s, err := csg.NewBrush(planes, opts...)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", who, err)
	}
	if err := sc.AddShape(s); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", who, err)
	}
	return &sexpShape{s: s}, nil
}

// kwFloat reads an optional numeric keyword, returning def when absent.
func kwFloat(pa kwArgs, name string, def float64) (float64, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// kwVec3 reads a required vec3 keyword.
func kwVec3(pa kwArgs, name string) (mgl64.Vec3, error) {
	v, ok := pa.kw[name]
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("missing :%s", name)
	}
	vec, err := toVec3(v)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%s: %w", name, err)
	}
	return vec, nil
}

// roundPrism handles the builtins shaped like
// (cylinder :radius 1 :height 2 :sides 8 ...).
func roundPrism(sc *csg.Scene, who string, planes func(r, h float64, sides int) []csg.Plane, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	r, err := kwFloat(pa, "radius", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", who, err)
	}
	h, err := kwFloat(pa, "height", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", who, err)
	}
	sides := 8
	if v, ok := pa.kw["sides"]; ok {
		if sides, err = toInt(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: sides: %w", who, err)
		}
	}
	if r <= 0 || h <= 0 {
		return zygo.SexpNull, fmt.Errorf("%s: radius and height must be positive", who)
	}
	return addBrush(sc, who, planes(r, h, sides), pa)
}

// shapeAndPlane reads the (op shape plane) argument pattern.
func shapeAndPlane(who string, args []zygo.Sexp) (*csg.BrushShape, csg.Plane, error) {
	if len(args) != 2 {
		return nil, csg.Plane{}, fmt.Errorf("%s requires a shape and a plane, got %d arguments", who, len(args))
	}
	s, err := toShape(args[0])
	if err != nil {
		return nil, csg.Plane{}, fmt.Errorf("%s: %w", who, err)
	}
	p, err := toPlane(args[1])
	if err != nil {
		return nil, csg.Plane{}, fmt.Errorf("%s: %w", who, err)
	}
	return s, p, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. Shape builtins add their brush to sc as they run; the caller
// updates the scene once the program finishes.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *csg.Scene) {

	// (material "rock" :render "textures/rock")
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("material requires a name argument")
		}
		matName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
		}
		if matName == "" {
			return zygo.SexpNull, fmt.Errorf("material: name must not be empty")
		}
		var render string
		if v, ok := pa.kw["render"]; ok {
			if render, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("material: render: %w", err)
			}
		}
		return &sexpMaterial{m: sc.Material(matName, render)}, nil
	})

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (plane (vec3 0 0 1) 2 :material m :uv-scale [1 1] :uv-offset [0 0])
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("plane requires a normal and a distance")
		}
		n, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
		if n.Len() == 0 {
			return zygo.SexpNull, fmt.Errorf("plane: normal must not be zero")
		}
		d, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: distance: %w", err)
		}
		p := csg.NewPlane(n, d)
		if v, ok := pa.kw["material"]; ok {
			if p.Material, err = toMaterial(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: material: %w", err)
			}
		}
		if v, ok := pa.kw["uv-scale"]; ok {
			if p.UVScale, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: uv-scale: %w", err)
			}
		}
		if v, ok := pa.kw["uv-offset"]; ok {
			if p.UVOffset, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: uv-offset: %w", err)
			}
		}
		return &sexpPlane{p: p}, nil
	})

	// (box :size (vec3 4 4 3) :empty :name "room")
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size, err := kwVec3(pa, "size")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return addBrush(sc, "box", csg.BoxPlanes(size), pa)
	})

	// (wedge :size (vec3 2 2 1) :solid)
	env.AddFunction("wedge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size, err := kwVec3(pa, "size")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wedge: %w", err)
		}
		return addBrush(sc, "wedge", csg.WedgePlanes(size), pa)
	})

	// (cylinder :radius 0.5 :height 3 :sides 12 :solid)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return roundPrism(sc, "cylinder", csg.CylinderPlanes, args)
	})

	// (pyramid :radius 1 :height 2 :sides 4 :solid)
	env.AddFunction("pyramid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return roundPrism(sc, "pyramid", csg.PyramidPlanes, args)
	})

	// (brush (plane ...) (plane ...) ... :solid) or (brush (list (plane ...) ...))
	env.AddFunction("brush", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var planes []csg.Plane
		for i, arg := range pa.positional {
			if p, err := toPlane(arg); err == nil {
				planes = append(planes, p)
				continue
			}
			items, err := sexpListToSlice(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("brush: argument %d: expected plane or list of planes", i)
			}
			for _, item := range items {
				p, err := toPlane(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("brush: argument %d: %w", i, err)
				}
				planes = append(planes, p)
			}
		}
		return addBrush(sc, "brush", planes, pa)
	})

	// (shape "room")
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a name argument")
		}
		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
		}
		s := sc.Shape(shapeName)
		if s == nil {
			return zygo.SexpNull, fmt.Errorf("shape: no shape named %q", shapeName)
		}
		return &sexpShape{s: s}, nil
	})

	// (move (shape "room") (vec3 0 0 1))
	env.AddFunction("move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("move requires a shape and an offset")
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}
		d, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: offset: %w", err)
		}
		s.Translate(d)
		return args[0], nil
	})

	// (rotate (shape "room") 90 (vec3 0 0 1)), angle in degrees
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a shape, an angle and an axis")
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		deg, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: angle: %w", err)
		}
		axis, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: axis: %w", err)
		}
		if err := s.Rotate(mgl64.DegToRad(deg), axis); err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		return args[0], nil
	})

	// (cut (shape "room") (plane (vec3 1 0 0) 0)) keeps the part behind the plane
	env.AddFunction("cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		s, p, err := shapeAndPlane("cut", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := sc.CutShape(s, p); err != nil {
			return zygo.SexpNull, fmt.Errorf("cut: %w", err)
		}
		return args[0], nil
	})

	// (split (shape "room") (plane (vec3 1 0 0) 0)) returns (back front)
	env.AddFunction("split", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		s, p, err := shapeAndPlane("split", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		back, front, err := sc.SplitShape(s, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: %w", err)
		}
		return zygo.MakeList([]zygo.Sexp{&sexpShape{s: back}, &sexpShape{s: front}}), nil
	})

	// (remove (shape "room"))
	env.AddFunction("remove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove requires a shape")
		}
		s, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		if err := sc.RemoveShape(s); err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}
		return zygo.SexpNull, nil
	})
}
