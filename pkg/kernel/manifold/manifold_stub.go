//go:build !manifold

// Package manifold is a cgo preview kernel backed by the Manifold library.
// Without the "manifold" build tag only this stub is compiled and New
// reports that the kernel is unavailable.
package manifold

import "github.com/chazu/quarry/pkg/kernel"

func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
