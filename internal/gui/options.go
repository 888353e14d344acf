package gui

// Options configure the editor window
type Options struct {
	Title         string
	SinglePreview bool
	// Attach, when set, receives a function that reloads the entry tree.
	// It is safe to call from any goroutine.
	Attach func(refresh func())
}
