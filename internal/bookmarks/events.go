package bookmarks

import (
	"sync"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

type (
	// Event describes one successful store mutation. Delete events carry
	// only the id/owner of the removed record.
	Event struct {
		Op       Op       `json:"op"`
		Bookmark Bookmark `json:"record"`
	}

	subscriber struct {
		ownerID string
		ch      chan Event
	}

	// Broker fans mutation events out to per-owner subscribers. Publish
	// never blocks; a subscriber that falls behind loses events rather
	// than stalling the mutation path.
	Broker struct {
		mu   sync.Mutex
		subs map[*subscriber]struct{}
	}
)

const subscriberBuffer = 16

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribe registers for the given owner's events. The returned cancel
// function must be called when the subscriber goes away; the channel is
// closed by it.
func (b *Broker) Subscribe(ownerID string) (<-chan Event, func()) {
	sub := &subscriber{
		ownerID: ownerID,
		ch:      make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		_, ok := b.subs[sub]
		delete(b.subs, sub)
		b.mu.Unlock()
		if ok {
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers the event to every subscriber of the record's owner.
// Nil-receiver safe so stores can run without a broker in tests.
func (b *Broker) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub.ownerID != e.Bookmark.OwnerID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}
