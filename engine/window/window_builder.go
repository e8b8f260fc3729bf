package window

import "go.uber.org/zap"

// WindowBuilderOption is a functional option for configuring a window.
type WindowBuilderOption func(w *windowImpl)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *windowImpl) {
		w.title = title
	}
}

// WithSize sets the initial window size.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *windowImpl) {
		w.width, w.height = width, height
	}
}

// WithMinSize sets the smallest size the window can be resized to.
//
// Parameters:
//   - width: minimum width in pixels
//   - height: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *windowImpl) {
		w.minWidth, w.minHeight = width, height
	}
}

// WithMaxSize sets the largest size the window can be resized to.
//
// Parameters:
//   - width: maximum width in pixels
//   - height: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *windowImpl) {
		w.maxWidth, w.maxHeight = width, height
	}
}

// WithLogger sets the logger window events are reported to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithLogger(l *zap.Logger) WindowBuilderOption {
	return func(w *windowImpl) {
		w.log = l
	}
}
