package csg

import "errors"

var (
	// ErrDegenerateBrush is returned when planes do not close a convex
	// volume whose every face has at least three vertices.
	ErrDegenerateBrush = errors.New("csg: degenerate brush")

	// ErrShapeNotFound is returned when a shape is not part of the scene.
	ErrShapeNotFound = errors.New("csg: shape not in scene")

	// ErrShapeInScene is returned when adding a shape that already belongs
	// to a scene.
	ErrShapeInScene = errors.New("csg: shape already belongs to a scene")

	// ErrSingularTransform is returned for transforms that cannot be inverted.
	ErrSingularTransform = errors.New("csg: transform is not invertible")

	// ErrCutMisses is returned when no part of the shape lies in front of
	// the cut plane.
	ErrCutMisses = errors.New("csg: cut plane does not intersect shape")

	// ErrCutEverything is returned when the cut would discard the whole shape.
	ErrCutEverything = errors.New("csg: cut plane removes the whole shape")
)
