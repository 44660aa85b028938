// Package chat relays support-room messages between websocket clients.
package chat

import (
	"context"
	"sync"

	"github.com/terra-clan/contest-engine/internal/models"
)

// Broadcaster fans published messages out to every subscribed hub
type Broadcaster interface {
	Publish(ctx context.Context, msg *models.ChatMessage) error
	// Subscribe returns once the subscription is live. fn is called for each
	// published message until ctx is done.
	Subscribe(ctx context.Context, fn func(*models.ChatMessage)) error
	Close() error
}

// LocalBroadcaster delivers within the current process only
type LocalBroadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(*models.ChatMessage)
}

// NewLocalBroadcaster creates an in-process broadcaster
func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{subs: make(map[int]func(*models.ChatMessage))}
}

func (b *LocalBroadcaster) Publish(_ context.Context, msg *models.ChatMessage) error {
	b.mu.RLock()
	fns := make([]func(*models.ChatMessage), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(msg)
	}
	return nil
}

func (b *LocalBroadcaster) Subscribe(ctx context.Context, fn func(*models.ChatMessage)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBroadcaster) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]func(*models.ChatMessage))
	b.mu.Unlock()
	return nil
}
