package csg

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// ValidationSeverity indicates whether a finding breaks a kernel invariant
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // broken invariant
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Shape    uint64 // uid of the shape at fault (zero if scene-level)
	Face     int    // face index, -1 if shape-level
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case e.Shape == 0:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	case e.Face < 0:
		return fmt.Sprintf("[%s] shape %d: %s", e.Severity, e.Shape, e.Message)
	default:
		return fmt.Sprintf("[%s] shape %d face %d: %s", e.Severity, e.Shape, e.Face, e.Message)
	}
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Shape   uint64
	Face    int
	Message string
}

// ValidationResult bundles errors and warnings from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// partitionTolerance is the relative area mismatch allowed between a face
// and the sum of its fragments, on top of the Epsilon-wide slivers carving
// may merge away along fragment edges.
const partitionTolerance = 1e-4

// Validate runs the structural checks on every shape: face topology,
// coplanarity, convexity, containment, bounds and adjacency symmetry. An
// empty slice means the scene is valid. It never mutates the scene.
func Validate(sc *Scene) []ValidationError {
	var errs []ValidationError
	for _, s := range sc.shapes {
		errs = append(errs, validateTopology(s)...)
		errs = append(errs, validateConvexity(s)...)
		errs = append(errs, validateContainment(s)...)
		errs = append(errs, validateBounds(s)...)
		errs = append(errs, validateAdjacency(sc, s)...)
	}
	return errs
}

// ValidateAll runs all tiers: structural checks, the fragment partition
// check and advisory warnings.
func ValidateAll(sc *Scene) ValidationResult {
	var result ValidationResult
	result.Errors = append(result.Errors, Validate(sc)...)
	if sc.Pending() {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Face:    -1,
			Message: "scene has edits pending update; fragments are stale",
		})
		return result
	}
	for _, s := range sc.shapes {
		result.Errors = append(result.Errors, validatePartition(s)...)
		if len(s.intersecting) > 0 && !lo.SomeBy(s.Faces, func(f Face) bool {
			return lo.SomeBy(f.Fragments, func(fr Fragment) bool { return fr.Visible() })
		}) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Shape:   s.uid,
				Face:    -1,
				Message: "shape contributes no visible surface",
			})
		}
	}
	result.Warnings = append(result.Warnings, validateMaterials(sc)...)
	return result
}

func shapeError(s *BrushShape, fi int, format string, args ...any) ValidationError {
	return ValidationError{
		Shape:    s.uid,
		Face:     fi,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	}
}

// validateTopology checks face sizes and the face/vertex back references.
func validateTopology(s *BrushShape) []ValidationError {
	var errs []ValidationError
	if len(s.Faces) < 4 {
		errs = append(errs, shapeError(s, -1, "only %d faces", len(s.Faces)))
	}
	for fi, f := range s.Faces {
		if len(f.Verts) < 3 {
			errs = append(errs, shapeError(s, fi, "only %d vertices", len(f.Verts)))
		}
		for _, vi := range f.Verts {
			if vi < 0 || vi >= len(s.Vertices) {
				errs = append(errs, shapeError(s, fi, "vertex index %d out of range", vi))
				continue
			}
			if !s.Vertices[vi].hasFace(fi) {
				errs = append(errs, shapeError(s, fi, "vertex %d does not reference the face", vi))
			}
		}
	}
	return errs
}

// validateConvexity checks that every face polygon lies on its plane and
// turns the same way at every corner.
func validateConvexity(s *BrushShape) []ValidationError {
	var errs []ValidationError
	for fi, f := range s.Faces {
		n := len(f.Verts)
		if n < 3 || lo.SomeBy(f.Verts, func(vi int) bool { return vi < 0 || vi >= len(s.Vertices) }) {
			continue
		}
		pts := lo.Map(f.Verts, func(vi int, _ int) mgl64.Vec3 { return s.Vertices[vi].Pos })
		plane := f.LocalPlane()
		for k, p := range pts {
			if d := math.Abs(plane.Distance(p)); d > Epsilon {
				errs = append(errs, shapeError(s, fi, "vertex %d is %.4f off the face plane", f.Verts[k], d))
			}
		}
		for k := 0; k < n; k++ {
			a, b, c := pts[k], pts[(k+1)%n], pts[(k+2)%n]
			if turn := b.Sub(a).Cross(c.Sub(b)).Dot(f.LocalN); turn < -Epsilon*Epsilon {
				errs = append(errs, shapeError(s, fi, "reflex corner at vertex %d", f.Verts[(k+1)%n]))
				break
			}
		}
	}
	return errs
}

// validateContainment checks that no control point lies outside the
// shape's own planes.
func validateContainment(s *BrushShape) []ValidationError {
	planes := s.Planes()
	var errs []ValidationError
	for vi, v := range s.Vertices {
		if ClassifyShape(v.Pos, planes) == Front {
			errs = append(errs, shapeError(s, -1, "vertex %d lies outside the brush", vi))
		}
	}
	return errs
}

// validateBounds checks the cached AABB against the world vertices.
func validateBounds(s *BrushShape) []ValidationError {
	want := EmptyAABB()
	for _, v := range s.Vertices {
		want = want.Extend(mgl64.TransformCoordinate(v.Pos, s.transform))
	}
	want = want.Expand(Epsilon)
	if !want.Min.ApproxEqualThreshold(s.aabb.Min, Epsilon) || !want.Max.ApproxEqualThreshold(s.aabb.Max, Epsilon) {
		return []ValidationError{shapeError(s, -1, "stale bounds %v, want %v", s.aabb, want)}
	}
	return nil
}

// validateAdjacency checks that overlap sets are symmetric and sorted.
func validateAdjacency(sc *Scene, s *BrushShape) []ValidationError {
	var errs []ValidationError
	for i, o := range s.intersecting {
		if o.scene != sc {
			errs = append(errs, shapeError(s, -1, "neighbor %d is not in the scene", o.uid))
			continue
		}
		if !o.hasNeighbor(s) {
			errs = append(errs, shapeError(s, -1, "neighbor %d does not list this shape", o.uid))
		}
		if i > 0 && s.intersecting[i-1].uid >= o.uid {
			errs = append(errs, shapeError(s, -1, "neighbors out of uid order"))
		}
	}
	return errs
}

// validatePartition checks that each face's fragments cover the face.
func validatePartition(s *BrushShape) []ValidationError {
	var errs []ValidationError
	for fi := range s.Faces {
		f := &s.Faces[fi]
		area := s.FaceArea(fi)
		sum := lo.SumBy(f.Fragments, func(fr Fragment) float64 { return fr.Area(f.N) })
		edges := lo.SumBy(f.Fragments, func(fr Fragment) float64 { return perimeter(fr.Positions()) })
		tol := partitionTolerance*math.Max(area, 1) + Epsilon*edges/2
		if math.Abs(sum-area) > tol {
			errs = append(errs, shapeError(s, fi, "fragments cover %.6f of face area %.6f", sum, area))
		}
	}
	return errs
}

func perimeter(pts []mgl64.Vec3) float64 {
	var l float64
	for i, p := range pts {
		l += pts[(i+1)%len(pts)].Sub(p).Len()
	}
	return l
}

// validateMaterials warns about registered materials no face renders with.
func validateMaterials(sc *Scene) []ValidationWarning {
	used := make(map[*Material]bool)
	for _, s := range sc.shapes {
		for fi := range s.Faces {
			used[s.FaceMaterial(fi)] = true
		}
	}
	var warns []ValidationWarning
	for _, m := range sc.materials {
		if !used[m] {
			warns = append(warns, ValidationWarning{
				Face:    -1,
				Message: fmt.Sprintf("material %q is not used by any face", m.Name),
			})
		}
	}
	return warns
}
