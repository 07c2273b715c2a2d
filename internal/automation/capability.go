// Package automation drives a browser through a recorded walkthrough: navigate, sign in when possible,
// perform prompt-driven interactions and capture the screen to a video file.
package automation

import (
	"context"
	"time"
)

// Viewport is the browser window size used for capture.
type Viewport struct {
	Width  int
	Height int
}

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser instance. Close releases every page it opened.
type Browser interface {
	NewPage(ctx context.Context, viewport Viewport) (Page, error)
	Close() error
}

// Page is a single tab.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Find returns the first element matching selector. Lookup errors are reported as not found.
	Find(ctx context.Context, selector string) (Element, bool)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	ScrollTo(ctx context.Context, y int) error
	ScrollToBottom(ctx context.Context) error
	StartCapture(ctx context.Context, path string) (Capture, error)
	Close() error
}

// Element is a DOM element handle.
type Element interface {
	Type(ctx context.Context, text string, delay time.Duration) error
	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Capture is an in-progress screen recording. Stop finalizes the output file.
type Capture interface {
	Stop() error
}
