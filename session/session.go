// Package session is the client side of the shared board: it turns pointer
// input into segment events, renders local and remote events onto a surface
// and keeps a local undo/redo history.
package session

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"drawing-board/internal/logx"
	"drawing-board/protocol"
)

// Surface is the raster a session draws onto.
type Surface interface {
	DrawSegment(seg protocol.Segment) error
	Clear()
	Snapshot() []byte
	Restore(snap []byte) error
	Background() string
	EncodePNG(w io.Writer) error
	EncodePDF(w io.Writer) error
}

// Sink transmits locally produced events to the hub. Implementations must not
// block.
type Sink interface {
	SendSegment(seg protocol.Segment) error
	SendClear() error
}

type Tool int

const (
	ToolPen Tool = iota
	ToolEraser
)

func (t Tool) String() string {
	if t == ToolEraser {
		return "eraser"
	}
	return "pen"
}

type state int

const (
	idle state = iota
	drawing
)

const (
	DefaultColor     = "#000000"
	DefaultBrushSize = 2
)

type point struct{ x, y float64 }

// Session owns one participant's canvas, tool settings and history.
type Session struct {
	surface Surface
	sink    Sink
	log     *zap.Logger

	mu        sync.Mutex
	state     state
	current   point
	tool      Tool
	color     string
	brushSize float64
	history   *History
	rejected  int
}

type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = logx.OrNop(l) }
}

// WithHistoryDepth bounds the undo stack; depth <= 0 keeps every snapshot.
func WithHistoryDepth(depth int) Option {
	return func(s *Session) { s.history = NewHistory(depth) }
}

// New creates an idle session drawing with the pen. sink may be nil for an
// offline session.
func New(surface Surface, sink Sink, opts ...Option) *Session {
	s := &Session{
		surface:   surface,
		sink:      sink,
		log:       zap.NewNop(),
		tool:      ToolPen,
		color:     DefaultColor,
		brushSize: DefaultBrushSize,
		history:   NewHistory(DefaultHistoryDepth),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) SetTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
}

func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetColor sets the pen color. The eraser ignores it.
func (s *Session) SetColor(c string) error {
	if _, err := protocol.ParseColor(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
	return nil
}

func (s *Session) Color() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

func (s *Session) SetBrushSize(size float64) error {
	if !(size > 0 && size <= protocol.MaxBrushSize) {
		return fmt.Errorf("session: brush size %v out of range (0, %d]", size, protocol.MaxBrushSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brushSize = size
	return nil
}

func (s *Session) BrushSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brushSize
}

// Drawing reports whether a stroke is in progress.
func (s *Session) Drawing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == drawing
}

// PointerDown starts a stroke at (x, y). Starting a stroke discards the redo
// branch.
func (s *Session) PointerDown(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = drawing
	s.current = point{x, y}
	s.history.DropRedo()
}

// PointerMove extends the current stroke to (x, y): the segment is drawn
// locally first and then handed to the sink. Moves outside a stroke are
// ignored.
func (s *Session) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != drawing {
		return
	}

	col := s.color
	if s.tool == ToolEraser {
		col = s.surface.Background()
	}
	seg := protocol.Segment{
		X0: s.current.x, Y0: s.current.y,
		X1: x, Y1: y,
		Color:     col,
		BrushSize: s.brushSize,
	}
	s.current = point{x, y}

	if err := s.surface.DrawSegment(seg); err != nil {
		s.log.Warn("local segment not drawn", zap.Error(err))
		return
	}
	if s.sink != nil {
		if err := s.sink.SendSegment(seg); err != nil {
			s.log.Debug("segment not sent", zap.Error(err))
		}
	}
}

// PointerUp ends the stroke and records the canvas for undo.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != drawing {
		return
	}
	s.state = idle
	s.history.Push(s.surface.Snapshot())
}

// Apply renders an event received from another participant. Remote segments
// go through the same drawing path as local ones; invalid ones are dropped.
func (s *Session) Apply(ev protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case protocol.Segment:
		if err := s.surface.DrawSegment(e); err != nil {
			s.rejected++
			s.log.Debug("discarding remote segment", zap.Error(err))
		}
	case protocol.Clear:
		// history is left alone: a remote clear is not undoable
		s.surface.Clear()
	}
}

// Undo restores the canvas to the snapshot before the latest stroke, or to a
// blank canvas. It is local only and never transmitted.
func (s *Session) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Undo()
	if !ok {
		return
	}
	s.restoreLocked(snap)
}

// Redo re-applies the most recently undone stroke.
func (s *Session) Redo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Redo()
	if !ok {
		return
	}
	s.restoreLocked(snap)
}

// Clear blanks the canvas and tells the other participants to do the same.
// The clear is not recorded in history.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surface.Clear()
	if s.sink != nil {
		if err := s.sink.SendClear(); err != nil {
			s.log.Debug("clear not sent", zap.Error(err))
		}
	}
}

// ExportImage writes the current canvas as PNG.
func (s *Session) ExportImage(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.EncodePNG(w)
}

// ExportPDF writes the current canvas as a one page PDF.
func (s *Session) ExportPDF(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.EncodePDF(w)
}

// Snapshot returns a copy of the current canvas pixels.
func (s *Session) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Snapshot()
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.UndoLen() > 0
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.RedoLen() > 0
}

// Rejected counts remote segments discarded as malformed.
func (s *Session) Rejected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

func (s *Session) restoreLocked(snap []byte) {
	if snap == nil {
		s.surface.Clear()
		return
	}
	if err := s.surface.Restore(snap); err != nil {
		s.log.Error("restore snapshot", zap.Error(err))
	}
}
