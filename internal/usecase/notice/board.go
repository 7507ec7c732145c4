// Package notice keeps short-lived per-user notifications, such as the
// message shown when an optimistic change had to be rolled back.
package notice

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 3 * time.Second

// Notice is one transient message for a user.
type Notice struct {
	ID       string      `json:"id"`
	Kind     domain.Kind `json:"kind"`
	Message  string      `json:"message"`
	HostelID string      `json:"hostelId,omitempty"`
	PostedAt time.Time   `json:"postedAt"`
}

// Board holds notices per user until they expire or are dismissed.
type Board struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string][]Notice
}

// New creates a Board. ttl <= 0 means DefaultTTL.
func New(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now, items: map[string][]Notice{}}
}

// Post records n for uid and returns it with its ID and timestamp set.
func (b *Board) Post(uid string, n Notice) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	n.ID = uuid.NewString()
	n.PostedAt = b.now()
	b.items[uid] = append(b.live(uid), n)
	return n
}

// List returns uid's unexpired notices, oldest first.
func (b *Board) List(uid string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.live(uid)
	if len(items) == 0 {
		delete(b.items, uid)
		return []Notice{}
	}
	b.items[uid] = items
	return slices.Clone(items)
}

// Dismiss removes one notice.
func (b *Board) Dismiss(uid, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[uid] = slices.DeleteFunc(b.items[uid], func(n Notice) bool { return n.ID == id })
}

// live drops expired notices. Caller holds mu.
func (b *Board) live(uid string) []Notice {
	cutoff := b.now().Add(-b.ttl)
	return slices.DeleteFunc(b.items[uid], func(n Notice) bool { return n.PostedAt.Before(cutoff) })
}
