// Package display contains the presentation backends for rendered
// frames: a desktop window, an SSD1322 OLED panel over SPI, and an HTTP
// preview server. Each backend owns its frame cadence and pulls frames
// from the orchestrator; the rendering core never knows which one runs.
package display

import (
	"context"
	"image"
	"time"
)

// FrameFunc produces the frame to present for the given tick time.
// Implementations must return a frame of the backend's exact
// dimensions; they are called once per display refresh.
type FrameFunc func(now time.Time) *image.RGBA

// Backend presents frames to the user or hardware. Run blocks until
// the backend is asked to quit (window closed, context cancelled) and
// drives its own refresh cadence by calling next.
type Backend interface {
	Run(ctx context.Context, next FrameFunc) error
	Close() error
}
