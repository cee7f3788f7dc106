package display

import (
	"context"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Window presents frames in a desktop window via ebiten. The window's
// own vsync-driven draw loop sets the tick cadence.
type Window struct {
	width      int
	height     int
	fullscreen bool
	logger     *log.Logger
}

func NewWindow(width, height int, fullscreen bool, logger *log.Logger) *Window {
	return &Window{width: width, height: height, fullscreen: fullscreen, logger: logger}
}

func (w *Window) Run(ctx context.Context, next FrameFunc) error {
	ebiten.SetWindowSize(w.width, w.height)
	ebiten.SetWindowTitle("BVG Abfahrtsanzeige")
	if w.fullscreen {
		ebiten.SetFullscreen(true)
	}
	w.logger.Printf("window display started | size: %dx%d | fullscreen: %v", w.width, w.height, w.fullscreen)

	err := ebiten.RunGame(&boardGame{ctx: ctx, next: next, width: w.width, height: w.height})
	w.logger.Println("window display stopped")
	return err
}

func (w *Window) Close() error {
	return nil
}

type boardGame struct {
	ctx    context.Context
	next   FrameFunc
	width  int
	height int
}

func (g *boardGame) Update() error {
	if g.ctx.Err() != nil || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *boardGame) Draw(screen *ebiten.Image) {
	frame := g.next(time.Now())
	if frame == nil {
		return
	}
	if b := frame.Bounds(); b.Dx() != g.width || b.Dy() != g.height {
		return
	}
	screen.WritePixels(frame.Pix)
}

func (g *boardGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
