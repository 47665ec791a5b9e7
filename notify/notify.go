// Package notify publishes the core's change-notification stream
// (spec §6 "Outputs to the external collaborators"). Its topic/
// subscribe shape is adapted from
// datasync/chaindatafetcher/event package, replacing that package's
// Kafka-backed broker with a plain in-process channel fan-out — the
// spec calls for "a change-notification channel", not a message bus,
// so sarama/Kafka (a dependency pulled in only for that broker) has
// no component left to serve it here.
package notify

import (
	"sync"

	"github.com/pivx-project/pivx-indexer/common"
)

// NewBlock announces a canonical block added at the tip.
type NewBlock struct {
	Height uint32
	Hash   common.Hash
}

// ReorgDetected announces a completed reorganization.
type ReorgDetected struct {
	Old   common.Hash
	New   common.Hash
	Depth uint64
}

// MempoolAction distinguishes the two MempoolChanged directions.
type MempoolAction int

const (
	MempoolAdded MempoolAction = iota
	MempoolRemoved
)

// MempoolChanged announces a mempool membership change.
type MempoolChanged struct {
	Action MempoolAction
	TxID   common.Hash
}

// Publisher fans events out to any number of subscribers. Each
// subscriber gets its own buffered channel; a slow subscriber drops
// events rather than blocking the writer (spec §5 "No other operation
// may block").
type Publisher struct {
	mu          sync.Mutex
	subscribers map[chan interface{}]struct{}
	bufferSize  int
}

// NewPublisher returns a Publisher whose subscriber channels are
// buffered to bufferSize.
func NewPublisher(bufferSize int) *Publisher {
	return &Publisher{
		subscribers: make(map[chan interface{}]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (p *Publisher) Subscribe() (<-chan interface{}, func()) {
	ch := make(chan interface{}, p.bufferSize)
	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	unsubscribe := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Publish delivers event to every current subscriber, dropping it for
// any subscriber whose buffer is full instead of blocking.
func (p *Publisher) Publish(event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
