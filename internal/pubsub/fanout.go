package pubsub

import (
	"sync"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
)

// fanout hands events received from a broker to in-process subscriber channels
type fanout struct {
	name        string
	mu          sync.RWMutex
	subscribers []chan Event
}

func (f *fanout) add() chan Event {
	ch := make(chan Event, 100)

	f.mu.Lock()
	f.subscribers = append(f.subscribers, ch)
	subCount := len(f.subscribers)
	f.mu.Unlock()

	logger.Debug(f.name+": New subscriber added", "total_subscribers", subCount)
	return ch
}

func (f *fanout) remove(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, sub := range f.subscribers {
		if sub == ch {
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			close(ch)
			logger.Debug(f.name+": Subscriber removed", "remaining_subscribers", len(f.subscribers))
			break
		}
	}
}

func (f *fanout) broadcast(event Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subscribers {
		select {
		case sub <- event:
		default:
			logger.Warn(f.name+": Skipping slow subscriber", "event_type", event.Type)
		}
	}
}

func (f *fanout) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subscribers {
		close(sub)
	}
	f.subscribers = nil
}
