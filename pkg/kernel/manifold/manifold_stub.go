//go:build !manifold

// Package manifold binds the Manifold boolean library. Without the
// "manifold" build tag only this stub is compiled and New fails with
// ErrUnavailable; configure the sdfx backend instead.
package manifold

import "github.com/chazu/molprint/pkg/kernel"

// New reports ErrUnavailable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
