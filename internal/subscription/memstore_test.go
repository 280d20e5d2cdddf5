package subscription

import (
	"context"
	"sort"
	"sync"
	"time"

	"planpass/internal/plan"

	"github.com/google/uuid"
)

// memStore is an in-memory Repository with the same conditional-write
// semantics as the Postgres store: a unique ACTIVE record per user and
// status transitions that only apply while their precondition still holds.
type memStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*Subscription
	seq       map[uuid.UUID]int
	next      int
	expireErr map[uuid.UUID]error
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{
		records:   make(map[uuid.UUID]*Subscription),
		seq:       make(map[uuid.UUID]int),
		expireErr: make(map[uuid.UUID]error),
	}
}

func (m *memStore) Create(_ context.Context, sub *Subscription) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.UserID == sub.UserID && rec.Status == StatusActive {
			return nil, ErrAlreadyActive
		}
	}

	stored := *sub
	m.records[stored.ID] = &stored
	m.next++
	m.seq[stored.ID] = m.next

	out := stored
	return &out, nil
}

func (m *memStore) FindActiveByUser(_ context.Context, userID int) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.UserID == userID && rec.Status == StatusActive {
			out := *rec
			return &out, nil
		}
	}
	return nil, ErrNoActiveSubscription
}

func (m *memStore) ListByUser(_ context.Context, userID int) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Subscription{}
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID] > m.seq[out[j].ID] })
	return out, nil
}

func (m *memStore) ListExpiredActive(_ context.Context, now time.Time) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	out := []Subscription{}
	for _, rec := range m.records {
		if rec.Status == StatusActive && rec.ExpiredAt(now) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (m *memStore) UpdatePlan(_ context.Context, id, planID uuid.UUID, start, end, now time.Time) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.Status != StatusActive || rec.ExpiredAt(now) || !CanTransition(rec.Status, StatusActive) {
		return nil, ErrStaleSubscription
	}

	rec.PlanID, rec.StartDate, rec.EndDate = planID, start, end
	out := *rec
	return &out, nil
}

func (m *memStore) Cancel(_ context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.Status != StatusActive || rec.ExpiredAt(now) || !CanTransition(rec.Status, StatusCancelled) {
		return ErrStaleSubscription
	}
	rec.Status = StatusCancelled
	return nil
}

func (m *memStore) Expire(_ context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.expireErr[id]; err != nil {
		return err
	}

	rec, ok := m.records[id]
	if !ok || rec.Status != StatusActive || !rec.ExpiredAt(now) || !CanTransition(rec.Status, StatusExpired) {
		return ErrStaleSubscription
	}
	rec.Status = StatusExpired
	return nil
}

func (m *memStore) get(id uuid.UUID) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[id]
}

func (m *memStore) activeCount(userID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rec := range m.records {
		if rec.UserID == userID && rec.Status == StatusActive {
			n++
		}
	}
	return n
}

// seed stores a record directly, bypassing lifecycle rules.
func (m *memStore) seed(sub Subscription) Subscription {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sub.ID] = &sub
	m.next++
	m.seq[sub.ID] = m.next
	return sub
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeCatalog struct {
	plans map[uuid.UUID]*plan.Plan
}

func newFakeCatalog(plans ...*plan.Plan) *fakeCatalog {
	c := &fakeCatalog{plans: make(map[uuid.UUID]*plan.Plan)}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) Get(_ context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	return p, nil
}

func (c *fakeCatalog) FindActive(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, plan.ErrPlanNotFound
	}
	return p, nil
}

func newPlan(name string, days int) *plan.Plan {
	return &plan.Plan{ID: uuid.New(), Name: name, DurationDays: days, Active: true}
}
