package csg

import "fmt"

// VolumeType says whether a brush fills space or carves it out.
type VolumeType int

const (
	Solid VolumeType = iota
	Empty
)

func (v VolumeType) String() string {
	switch v {
	case Solid:
		return "solid"
	case Empty:
		return "empty"
	default:
		return fmt.Sprintf("VolumeType(%d)", int(v))
	}
}

// ParseVolumeType accepts "solid" or "empty".
func ParseVolumeType(s string) (VolumeType, error) {
	switch s {
	case "solid":
		return Solid, nil
	case "empty":
		return Empty, nil
	}
	return 0, fmt.Errorf("csg: unknown volume type %q, expected solid or empty", s)
}

// Material is a named surface handle. RenderMaterial is an opaque reference
// resolved by the renderer.
type Material struct {
	Name           string
	RenderMaterial string
}

// materialName returns the export key for m; nil maps to the default group.
func materialName(m *Material) string {
	if m == nil {
		return ""
	}
	return m.Name
}
