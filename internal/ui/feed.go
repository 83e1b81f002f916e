package ui

import (
	"sync"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/monitor"
)

// Feed buffers coordinator status emissions for the UI event loop. When the
// buffer is full the oldest entry is dropped so the engine never blocks on a
// slow terminal.
type Feed struct {
	mu     sync.Mutex
	ch     chan models.Status
	closed bool
}

var _ monitor.StatusSink = (*Feed)(nil)

func NewFeed() *Feed {
	return &Feed{ch: make(chan models.Status, 16)}
}

func (f *Feed) OnStatusChanged(status models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.ch <- status:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Statuses is the stream the UI consumes. It ends when Close is called.
func (f *Feed) Statuses() <-chan models.Status {
	return f.ch
}

// Close ends the stream. Emissions after Close are discarded.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
