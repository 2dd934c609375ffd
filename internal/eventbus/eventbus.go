package eventbus

import (
	"sync"
	"sync/atomic"

	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/models"
)

// Bus fans published events out to all registered sinks.
//
// Contract:
//   - Publish never blocks and never fails the caller.
//   - Each sink receives events in publish order.
//   - A sink whose buffer is full drops the event (logged); other sinks
//     are unaffected.
type Bus interface {
	Publish(e models.Event)
	Subscribe(buffer int) (<-chan models.Event, func())
}

const defaultBuffer = 16

// New returns an in-memory fan-out bus. It owns no background goroutines.
func New(log *logger.Logger) Bus {
	return &memBus{subs: map[uint64]chan models.Event{}, log: log}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan models.Event
	seq  atomic.Uint64
	log  *logger.Logger
}

func (b *memBus) Publish(e models.Event) {
	// Snapshot sinks so no lock is held while sending.
	b.mu.RLock()
	chs := make([]chan models.Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// A sink may unsubscribe (and close its channel) concurrently;
		// recover so one dead sink cannot take down a publish.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
				if b.log != nil {
					b.log.Warnw("event_delivery_dropped", "event", e.Event, "event_id", e.ID)
				}
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan models.Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
