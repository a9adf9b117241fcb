package session

// DefaultHistoryDepth bounds the undo stack.
const DefaultHistoryDepth = 64

// History holds the undo and redo stacks of canvas snapshots. A snapshot is in
// at most one of the two stacks at any time.
type History struct {
	undo  [][]byte
	redo  [][]byte
	depth int
}

// NewHistory returns an empty history keeping at most depth undo snapshots.
// depth <= 0 means unbounded.
func NewHistory(depth int) *History {
	return &History{depth: depth}
}

// Push records a completed stroke. The oldest snapshot is dropped once the
// stack is full.
func (h *History) Push(snap []byte) {
	h.undo = append(h.undo, snap)
	if h.depth > 0 && len(h.undo) > h.depth {
		h.undo[0] = nil
		h.undo = h.undo[1:]
	}
}

// Undo moves the newest snapshot to the redo stack. It returns the snapshot
// the canvas should now show, or nil for a blank canvas. ok is false when
// there was nothing to undo.
func (h *History) Undo() (restore []byte, ok bool) {
	n := len(h.undo)
	if n == 0 {
		return nil, false
	}
	top := h.undo[n-1]
	h.undo = h.undo[:n-1]
	h.redo = append(h.redo, top)

	if len(h.undo) == 0 {
		return nil, true
	}
	return h.undo[len(h.undo)-1], true
}

// Redo moves the newest redo snapshot back onto the undo stack and returns it.
func (h *History) Redo() (restore []byte, ok bool) {
	n := len(h.redo)
	if n == 0 {
		return nil, false
	}
	top := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.Push(top)
	return top, true
}

// DropRedo discards the redo branch.
func (h *History) DropRedo() {
	h.redo = nil
}

func (h *History) UndoLen() int { return len(h.undo) }
func (h *History) RedoLen() int { return len(h.redo) }
