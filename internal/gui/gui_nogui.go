//go:build nogui
// +build nogui

package gui

import (
	"fmt"

	"packedit/internal/views"
)

// Run is a stub implementation for builds with GUI disabled
func Run(b views.Poster, opts Options) error {
	return fmt.Errorf("GUI not available in this build")
}

// IsGUIAvailable returns whether the GUI is available in this build
func IsGUIAvailable() bool {
	return false
}
