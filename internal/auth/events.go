package auth

import (
	"sync"

	"github.com/hitoshi/kudos/internal/model"
)

// Listener は認証イベントの購読関数。
type Listener func(event model.AuthEvent, session *model.Session)

// EventBus は認証イベントを購読者に配信する。
// 配信は発行元のgoroutineで同期的に行う。
type EventBus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// NewEventBus はEventBusを生成する。
func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[int]Listener)}
}

// Subscribe はリスナーを登録し、登録解除用の関数を返す。
// 解除関数は複数回呼んでも安全。
func (b *EventBus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish はイベントを全リスナーに配信する。
func (b *EventBus) Publish(event model.AuthEvent, session *model.Session) {
	b.mu.RLock()
	ls := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.RUnlock()

	for _, l := range ls {
		l(event, session)
	}
}
