package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"
)

// Web serves the current frame over HTTP, for headless setups and for
// checking the board from another room. GET /frame.png returns the
// latest render; GET / serves a minimal page that reloads it.
type Web struct {
	addr   string
	fps    int
	logger *log.Logger

	mu     sync.RWMutex
	latest []byte
}

func NewWeb(addr string, fps int, logger *log.Logger) *Web {
	return &Web{addr: addr, fps: fps, logger: logger}
}

func (w *Web) Run(ctx context.Context, next FrameFunc) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Get("/", w.handleIndex)
	r.Get("/frame.png", w.handleFrame)

	srv := &http.Server{Addr: w.addr, Handler: r}
	w.logger.Printf("web display started | addr: %s | fps: %d", w.addr, w.fps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(time.Second / time.Duration(w.fps))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				if err := w.encode(next(now)); err != nil {
					w.logger.Printf("frame encode failed: %v", err)
				}
			}
		}
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web display: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	w.logger.Println("web display stopped")
	return err
}

func (w *Web) Close() error {
	return nil
}

func (w *Web) encode(frame *image.RGBA) error {
	if frame == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return err
	}
	w.mu.Lock()
	w.latest = buf.Bytes()
	w.mu.Unlock()
	return nil
}

func (w *Web) handleIndex(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(rw, indexPage, 1000/w.fps)
}

func (w *Web) handleFrame(rw http.ResponseWriter, _ *http.Request) {
	w.mu.RLock()
	frame := w.latest
	w.mu.RUnlock()
	if frame == nil {
		http.Error(rw, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	rw.Header().Set("Content-Type", "image/png")
	rw.Header().Set("Cache-Control", "no-store")
	rw.Write(frame)
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>BVG Abfahrtsanzeige</title>
<style>body{background:#000;margin:0;display:flex;justify-content:center;align-items:center;height:100vh}img{image-rendering:pixelated;max-width:100%%}</style>
</head>
<body>
<img id="board" src="/frame.png">
<script>
const img = document.getElementById("board");
setInterval(() => { img.src = "/frame.png?t=" + Date.now(); }, %d);
</script>
</body>
</html>
`
