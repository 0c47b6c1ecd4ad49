//go:build !linux

package bridge

import "github.com/llehouerou/undertow/internal/engine"

// MPRIS is a no-op on non-Linux platforms.
type MPRIS struct{}

// NewMPRIS returns a no-op adapter on non-Linux platforms.
func NewMPRIS(_ engine.Service) (*MPRIS, error) {
	return &MPRIS{}, nil
}

// Close is a no-op on non-Linux platforms.
func (m *MPRIS) Close() error {
	return nil
}

// FindAlbumArt returns empty on non-Linux platforms.
func FindAlbumArt(_ string) string {
	return ""
}
