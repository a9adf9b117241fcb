package hub

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"drawing-board/internal/logx"
	"drawing-board/protocol"
)

var (
	ErrClosed       = errors.New("hub: participant closed")
	ErrSlowConsumer = errors.New("hub: send buffer full")
)

// Participant is one connected client as seen by the hub.
type Participant interface {
	ID() string
	// Send queues data for delivery without blocking.
	Send(data []byte) error
	Close() error
}

// Hub relays drawing events between participants of the shared canvas. It
// keeps no drawing state.
type Hub struct {
	participants map[string]Participant
	mu           sync.Mutex
	log          *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		participants: make(map[string]Participant),
		log:          logx.OrNop(logger),
	}
}

// Connect registers p and sends the updated participant list to everyone,
// p included.
func (h *Hub) Connect(p Participant) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.participants[p.ID()] = p
	h.log.Info("participant connected",
		zap.String("participant", p.ID()),
		zap.Int("participants", len(h.participants)))

	h.broadcastListLocked()
}

// Disconnect removes p and sends the updated list to the remaining
// participants. Calling it for an unknown participant is a no-op.
func (h *Hub) Disconnect(p Participant) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.participants[p.ID()]; !ok || cur != p {
		return
	}
	delete(h.participants, p.ID())
	p.Close()

	h.log.Info("participant disconnected",
		zap.String("participant", p.ID()),
		zap.Int("participants", len(h.participants)))

	h.broadcastListLocked()
}

// Handle routes one raw message received from sender. Only segment and clear
// messages are relayed; the payload is forwarded untouched.
func (h *Hub) Handle(sender Participant, raw []byte) {
	typ, err := protocol.PeekType(raw)
	if err != nil {
		h.log.Debug("dropping unparseable message", zap.String("participant", sender.ID()), zap.Error(err))
		return
	}

	switch typ {
	case protocol.TypeSegment, protocol.TypeClear:
		h.Relay(sender, raw)
	default:
		h.log.Debug("dropping message", zap.String("participant", sender.ID()), zap.String("type", typ))
	}
}

// Relay sends data to every participant except sender.
func (h *Hub) Relay(sender Participant, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, p := range h.participants {
		if sender != nil && id == sender.ID() {
			continue
		}
		h.sendLocked(p, data)
	}
}

// Close disconnects every participant without announcing it. Used on
// shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, p := range h.participants {
		p.Close()
		delete(h.participants, id)
	}
	h.log.Info("hub closed")
}

// Participants returns the sorted ids of everyone connected.
func (h *Hub) Participants() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.idsLocked()
}

// Count returns the number of connected participants.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.participants)
}

func (h *Hub) broadcastListLocked() {
	data, err := protocol.Encode(protocol.ParticipantList{IDs: h.idsLocked()})
	if err != nil {
		h.log.Error("encode participant list", zap.Error(err))
		return
	}
	for _, p := range h.participants {
		h.sendLocked(p, data)
	}
}

// sendLocked delivers to one participant. A failing recipient is dropped in
// the background so the rest of the fan-out proceeds.
func (h *Hub) sendLocked(p Participant, data []byte) {
	if err := p.Send(data); err != nil {
		h.log.Warn("dropping participant", zap.String("participant", p.ID()), zap.Error(err))
		go h.Disconnect(p)
	}
}

func (h *Hub) idsLocked() []string {
	ids := make([]string, 0, len(h.participants))
	for id := range h.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
