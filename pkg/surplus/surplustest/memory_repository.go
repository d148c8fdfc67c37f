// Package surplustest provides an in-memory SurplusRepository for tests.
package surplustest

import (
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/pkg/impact"
	"Surplus-Share-Backend/pkg/surplus"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryRepository keeps posts, claims, users and the notification ledger
// in maps. UpdatePostAtomically holds a single mutex, which gives the same
// serialisation per post as the row lock in the gorm repository.
type MemoryRepository struct {
	mu     sync.Mutex
	posts  map[uuid.UUID]entities.SurplusPost
	claims map[uuid.UUID]entities.Claim
	users  map[uuid.UUID]entities.User
	ledger map[string]entities.ExpiryNotificationLog
	order  []uuid.UUID
	Clock  func() time.Time
	FailOn map[uuid.UUID]error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		posts:  map[uuid.UUID]entities.SurplusPost{},
		claims: map[uuid.UUID]entities.Claim{},
		users:  map[uuid.UUID]entities.User{},
		ledger: map[string]entities.ExpiryNotificationLog{},
		Clock:  time.Now,
		FailOn: map[uuid.UUID]error{},
	}
}

var (
	_ surplus.SurplusRepository = (*MemoryRepository)(nil)
	_ impact.ImpactRepository   = (*MemoryRepository)(nil)
)

func (m *MemoryRepository) AddUser(u entities.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// PutPost stores a post as-is, bypassing the service.
func (m *MemoryRepository) PutPost(p entities.SurplusPost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storePost(p)
}

func (m *MemoryRepository) PutClaim(c entities.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[c.ID] = c
}

func (m *MemoryRepository) Claims(postID uuid.UUID) []entities.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Claim
	for _, c := range m.claims {
		if c.SurplusPostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryRepository) LedgerSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger)
}

func (m *MemoryRepository) storePost(p entities.SurplusPost) {
	if _, ok := m.posts[p.ID]; !ok {
		m.order = append(m.order, p.ID)
		if p.CreatedAt.IsZero() {
			p.CreatedAt = m.Clock()
		}
	}
	p.UpdatedAt = m.Clock()
	m.posts[p.ID] = p
}

func (m *MemoryRepository) CreatePost(ctx context.Context, post *entities.SurplusPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	m.storePost(*post)
	*post = m.posts[post.ID]
	return nil
}

func (m *MemoryRepository) GetPostByID(ctx context.Context, id uuid.UUID) (*entities.SurplusPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) activeClaim(postID uuid.UUID) *entities.Claim {
	for _, c := range m.claims {
		if c.SurplusPostID == postID && c.Status == entities.ClaimStatusActive {
			return &c
		}
	}
	return nil
}

func (m *MemoryRepository) GetActiveClaim(ctx context.Context, postID uuid.UUID) (*entities.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeClaim(postID), nil
}

func (m *MemoryRepository) filter(keep func(p entities.SurplusPost) bool) []*entities.SurplusPost {
	out := []*entities.SurplusPost{}
	for _, id := range m.order {
		p := m.posts[id]
		if keep(p) {
			out = append(out, &p)
		}
	}
	return out
}

func (m *MemoryRepository) ListAvailablePosts(ctx context.Context, now time.Time, page, limit int) ([]*entities.SurplusPost, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filter(func(p entities.SurplusPost) bool {
		return p.Status == entities.PostStatusAvailable && p.EffectiveExpiry.After(now)
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].EffectiveExpiry.Before(all[j].EffectiveExpiry) })

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *MemoryRepository) UpdatePostAtomically(ctx context.Context, postID uuid.UUID, fn surplus.TransitionFunc) (*entities.SurplusPost, *entities.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailOn[postID]; err != nil {
		return nil, nil, err
	}

	stored, ok := m.posts[postID]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}
	post := stored
	active := m.activeClaim(postID)

	var working *entities.Claim
	if active != nil {
		c := *active
		working = &c
	}

	changed, err := fn(&post, working)
	if err != nil {
		return nil, nil, err
	}

	m.storePost(post)
	result := working
	if changed != nil {
		if changed.CreatedAt.IsZero() {
			changed.CreatedAt = m.Clock()
		}
		changed.UpdatedAt = m.Clock()
		m.claims[changed.ID] = *changed
		result = changed
	}

	saved := m.posts[postID]
	return &saved, result, nil
}

func (m *MemoryRepository) GetPostsWithActiveClaimByStatus(ctx context.Context, status entities.PostStatus) ([]surplus.PostWithClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	posts := m.filter(func(p entities.SurplusPost) bool { return p.Status == status })
	out := make([]surplus.PostWithClaim, 0, len(posts))
	for _, p := range posts {
		out = append(out, surplus.PostWithClaim{Post: p, Claim: m.activeClaim(p.ID)})
	}
	return out, nil
}

func (m *MemoryRepository) GetNonTerminalPostsExpiredBefore(ctx context.Context, t time.Time) ([]*entities.SurplusPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p entities.SurplusPost) bool {
		terminal, err := p.Status.IsTerminal()
		return err == nil && !terminal && p.EffectiveExpiry.Before(t)
	}), nil
}

func (m *MemoryRepository) GetAvailablePostsExpiringBetween(ctx context.Context, from, to time.Time) ([]*entities.SurplusPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p entities.SurplusPost) bool {
		return p.Status == entities.PostStatusAvailable &&
			p.EffectiveExpiry.After(from) && !p.EffectiveExpiry.After(to)
	}), nil
}

func (m *MemoryRepository) GetTerminalPostsBetween(ctx context.Context, from, to time.Time, donorID *uuid.UUID) ([]*entities.SurplusPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p entities.SurplusPost) bool {
		terminal, err := p.Status.IsTerminal()
		if err != nil || !terminal {
			return false
		}
		if donorID != nil && p.DonorID != *donorID {
			return false
		}
		at := impact.EventTime(&p)
		return !at.Before(from) && !at.After(to)
	}), nil
}

func (m *MemoryRepository) ReserveExpiryNotification(ctx context.Context, entry *entities.ExpiryNotificationLog) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledger[entry.DedupeKey]; ok {
		return false, nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = m.Clock()
	m.ledger[entry.DedupeKey] = *entry
	return true, nil
}

func (m *MemoryRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}
