package service

import (
	"sync"

	"github.com/tieubaoca/sikoma-be/types"
)

const subscriberBuffer = 32

// ProgressPublisher receives ingestion progress events.
type ProgressPublisher interface {
	Publish(event types.ProgressEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(types.ProgressEvent) {}

// ProgressHub fans ingestion progress out to subscribers of an upload id.
// Publishing never blocks: a subscriber that falls behind loses events.
type ProgressHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan types.ProgressEvent]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subscribers: make(map[string]map[chan types.ProgressEvent]struct{}),
	}
}

// Subscribe returns the event stream of uploadID and a function that ends
// the subscription and closes the stream.
func (h *ProgressHub) Subscribe(uploadID string) (<-chan types.ProgressEvent, func()) {
	ch := make(chan types.ProgressEvent, subscriberBuffer)
	h.mu.Lock()
	if h.subscribers[uploadID] == nil {
		h.subscribers[uploadID] = make(map[chan types.ProgressEvent]struct{})
	}
	h.subscribers[uploadID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[uploadID], ch)
			if len(h.subscribers[uploadID]) == 0 {
				delete(h.subscribers, uploadID)
			}
			close(ch)
		})
	}
}

func (h *ProgressHub) Publish(event types.ProgressEvent) {
	if event.UploadID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[event.UploadID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *ProgressHub) SubscriberCount(uploadID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[uploadID])
}

// IsTerminalStage reports whether no further events follow stage.
func IsTerminalStage(stage string) bool {
	return stage == types.PROGRESS_STAGE_DONE || stage == types.PROGRESS_STAGE_FAILED
}
