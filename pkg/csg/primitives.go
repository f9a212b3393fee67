package csg

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoxPlanes returns the six planes of an axis-aligned box of the given
// size centered on the origin.
func BoxPlanes(size mgl64.Vec3) []Plane {
	h := size.Mul(0.5)
	return []Plane{
		NewPlane(mgl64.Vec3{1, 0, 0}, h.X()),
		NewPlane(mgl64.Vec3{-1, 0, 0}, h.X()),
		NewPlane(mgl64.Vec3{0, 1, 0}, h.Y()),
		NewPlane(mgl64.Vec3{0, -1, 0}, h.Y()),
		NewPlane(mgl64.Vec3{0, 0, 1}, h.Z()),
		NewPlane(mgl64.Vec3{0, 0, -1}, h.Z()),
	}
}

// WedgePlanes returns a ramp filling the box of the given size below the
// diagonal that rises from the bottom front edge (-Y) to the top back
// edge (+Y).
func WedgePlanes(size mgl64.Vec3) []Plane {
	h := size.Mul(0.5)
	return []Plane{
		NewPlane(mgl64.Vec3{1, 0, 0}, h.X()),
		NewPlane(mgl64.Vec3{-1, 0, 0}, h.X()),
		NewPlane(mgl64.Vec3{0, 1, 0}, h.Y()),
		NewPlane(mgl64.Vec3{0, 0, -1}, h.Z()),
		NewPlane(mgl64.Vec3{0, -size.Z(), size.Y()}, 0),
	}
}

// CylinderPlanes returns a prism with the given number of sides around the
// Z axis. radius is the distance from the axis to each side.
func CylinderPlanes(radius, height float64, sides int) []Plane {
	sides = max(sides, 3)
	planes := make([]Plane, 0, sides+2)
	planes = append(planes,
		NewPlane(mgl64.Vec3{0, 0, 1}, height/2),
		NewPlane(mgl64.Vec3{0, 0, -1}, height/2),
	)
	for i := 0; i < sides; i++ {
		a := 2 * math.Pi * float64(i) / float64(sides)
		planes = append(planes, NewPlane(mgl64.Vec3{math.Cos(a), math.Sin(a), 0}, radius))
	}
	return planes
}

// PyramidPlanes returns a pyramid with a regular base of the given number
// of sides and its apex on the +Z axis. radius is the distance from the
// axis to each base edge.
func PyramidPlanes(radius, height float64, sides int) []Plane {
	sides = max(sides, 3)
	planes := make([]Plane, 0, sides+1)
	planes = append(planes, NewPlane(mgl64.Vec3{0, 0, -1}, height/2))
	for i := 0; i < sides; i++ {
		a := 2 * math.Pi * float64(i) / float64(sides)
		u := mgl64.Vec3{math.Cos(a), math.Sin(a), 0}
		n := u.Mul(height).Add(mgl64.Vec3{0, 0, radius})
		apex := mgl64.Vec3{0, 0, height / 2}
		planes = append(planes, NewPlane(n, n.Dot(apex)))
	}
	return planes
}
