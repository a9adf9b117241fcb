// Command scribble joins a drawing board as a headless participant. It draws
// random strokes, keeps whatever the others draw, and writes the canvas out
// when it is done.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"drawing-board/client"
	"drawing-board/discovery"
	"drawing-board/internal/logx"
	"drawing-board/raster"
	"drawing-board/session"
)

var palette = []string{"black", "red", "green", "blue", "orange", "purple", "#e74c3c", "#3498db", "#2ecc71"}

func main() {
	var (
		wsURL    = flag.String("url", "ws://localhost:4000/ws", "hub websocket url")
		discover = flag.Bool("discover", false, "find the hub over mDNS instead of -url")
		strokes  = flag.Int("strokes", 10, "number of strokes to draw")
		points   = flag.Int("points", 20, "points per stroke")
		rate     = flag.Int("rate", 60, "pointer moves per second")
		undo     = flag.Int("undo", 0, "strokes to undo once drawing is done")
		linger   = flag.Duration("linger", 2*time.Second, "time to keep receiving after drawing")
		pngOut   = flag.String("png", "whiteboard.png", "PNG output path, empty to skip")
		pdfOut   = flag.String("pdf", "", "PDF output path, empty to skip")
		width    = flag.Int("width", raster.DefaultWidth, "canvas width")
		height   = flag.Int("height", raster.DefaultHeight, "canvas height")
		level    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log, err := logx.New("dev", *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *rate <= 0 {
		log.Fatal("rate must be positive", zap.Int("rate", *rate))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := *wsURL
	if *discover {
		addr, err := discovery.Lookup(ctx, 3*time.Second)
		if err != nil {
			log.Fatal("discover hub", zap.Error(err))
		}
		url = "ws://" + addr + "/ws"
	}

	c, err := client.Dial(ctx, url, client.WithLogger(log))
	if err != nil {
		log.Fatal("dial", zap.String("url", url), zap.Error(err))
	}
	defer c.Close()
	log.Info("connected", zap.String("url", url))

	canvas, err := raster.New(*width, *height, raster.DefaultBackground)
	if err != nil {
		log.Fatal("canvas", zap.Error(err))
	}
	sess := session.New(canvas, c, session.WithLogger(log))

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx, sess.Apply) }()

	drawn := scribble(ctx, log, sess, *strokes, *points, *rate, *width, *height)
	log.Info("drawing finished", zap.Int("strokes", drawn), zap.Strings("participants", c.Participants()))

	for i := 0; i < *undo && sess.CanUndo(); i++ {
		sess.Undo()
	}

	select {
	case <-time.After(*linger):
	case <-ctx.Done():
	case err := <-runErr:
		if err != nil {
			log.Warn("connection lost", zap.Error(err))
		}
	}

	if err := export(*pngOut, sess.ExportImage); err != nil {
		log.Error("png export", zap.Error(err))
	}
	if err := export(*pdfOut, sess.ExportPDF); err != nil {
		log.Error("pdf export", zap.Error(err))
	}
	if sess.Rejected() > 0 {
		log.Warn("discarded invalid remote segments", zap.Int("count", sess.Rejected()))
	}
}

// scribble draws random walks, one pointer move per tick. It returns the
// number of completed strokes. A stroke whose tool settings are rejected is
// skipped.
func scribble(ctx context.Context, log *zap.Logger, sess *session.Session, strokes, points, rate, width, height int) int {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	done := 0
	for attempt := 0; done < strokes && attempt < 2*strokes; attempt++ {
		col := palette[rand.Intn(len(palette))]
		if err := sess.SetColor(col); err != nil {
			log.Warn("skipping stroke", zap.String("color", col), zap.Error(err))
			continue
		}
		size := float64(1 + rand.Intn(20))
		if err := sess.SetBrushSize(size); err != nil {
			log.Warn("skipping stroke", zap.Float64("brush_size", size), zap.Error(err))
			continue
		}
		if rand.Intn(8) == 0 {
			sess.SetTool(session.ToolEraser)
		} else {
			sess.SetTool(session.ToolPen)
		}

		x, y := rand.Float64()*float64(width), rand.Float64()*float64(height)
		sess.PointerDown(x, y)
		for i := 0; i < points; i++ {
			select {
			case <-ctx.Done():
				sess.PointerUp()
				return done
			case <-ticker.C:
			}
			x = clamp(x+rand.NormFloat64()*15, 0, float64(width))
			y = clamp(y+rand.NormFloat64()*15, 0, float64(height))
			sess.PointerMove(x, y)
		}
		sess.PointerUp()
		done++
	}
	return done
}

func export(path string, write func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
