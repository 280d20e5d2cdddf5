package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"planpass/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunOnce(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock()
	pub := &capturePublisher{}
	sweeper := NewSweeper(store, time.Hour, WithClock(clock.Now), WithPublisher(pub))
	now := clock.Now()
	planID := uuid.New()

	overdue := store.seed(Subscription{UserID: 1, PlanID: planID, Status: StatusActive, StartDate: now.Add(-31 * day), EndDate: now.Add(-day)})
	boundary := store.seed(Subscription{UserID: 2, PlanID: planID, Status: StatusActive, StartDate: now.Add(-30 * day), EndDate: now})
	valid := store.seed(Subscription{UserID: 3, PlanID: planID, Status: StatusActive, StartDate: now, EndDate: now.Add(day)})
	cancelled := store.seed(Subscription{UserID: 4, PlanID: planID, Status: StatusCancelled, StartDate: now.Add(-60 * day), EndDate: now.Add(-30 * day)})

	res, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Expired, 2)
	assert.Equal(t, overdue.ID, res.Expired[0].ID, "oldest end date first")
	assert.Equal(t, boundary.ID, res.Expired[1].ID)
	for _, sub := range res.Expired {
		assert.Equal(t, StatusExpired, sub.Status)
	}

	assert.Equal(t, StatusExpired, store.get(overdue.ID).Status)
	assert.Equal(t, StatusExpired, store.get(boundary.ID).Status)
	assert.Equal(t, StatusActive, store.get(valid.ID).Status)
	assert.Equal(t, StatusCancelled, store.get(cancelled.ID).Status)
	assert.Equal(t, []events.Type{events.TypeExpired, events.TypeExpired}, pub.types())

	again, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Count, "re-running is a no-op")
	assert.Empty(t, again.Expired)
}

func TestSweeper_RecordFailureDoesNotAbortRun(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock()
	sweeper := NewSweeper(store, time.Hour, WithClock(clock.Now))
	now := clock.Now()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		sub := store.seed(Subscription{
			UserID:    i + 1,
			PlanID:    uuid.New(),
			Status:    StatusActive,
			StartDate: now.Add(-40 * day),
			EndDate:   now.Add(-time.Duration(3-i) * time.Hour),
		})
		ids = append(ids, sub.ID)
	}
	store.expireErr[ids[1]] = errors.New("deadlock detected")

	res, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, StatusExpired, store.get(ids[0]).Status)
	assert.Equal(t, StatusActive, store.get(ids[1]).Status)
	assert.Equal(t, StatusExpired, store.get(ids[2]).Status)

	delete(store.expireErr, ids[1])
	res, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count, "the failed record is picked up by the next run")
}

func TestSweeper_ListFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection refused")
	sweeper := NewSweeper(store, time.Hour)

	res, err := sweeper.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestSweeper_StartRunsImmediatelyAndStops(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock()
	now := clock.Now()
	sub := store.seed(Subscription{UserID: 1, PlanID: uuid.New(), Status: StatusActive, StartDate: now.Add(-2 * day), EndDate: now.Add(-day)})

	sweeper := NewSweeper(store, time.Hour, WithClock(clock.Now))
	require.NoError(t, sweeper.Start(context.Background()))
	assert.ErrorIs(t, sweeper.Start(context.Background()), ErrSweeperRunning)

	assert.Eventually(t, func() bool {
		return store.get(sub.ID).Status == StatusExpired
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()

	require.NoError(t, sweeper.Start(context.Background()), "a stopped sweeper can be started again")
	sweeper.Stop()
}

func TestSweeper_TicksOnInterval(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock()
	sweeper := NewSweeper(store, 10*time.Millisecond, WithClock(clock.Now), WithRunOnStart(false))

	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	now := clock.Now()
	sub := store.seed(Subscription{UserID: 1, PlanID: uuid.New(), Status: StatusActive, StartDate: now.Add(-day), EndDate: now.Add(time.Hour)})
	clock.Advance(2 * time.Hour)

	assert.Eventually(t, func() bool {
		return store.get(sub.ID).Status == StatusExpired
	}, time.Second, 5*time.Millisecond)
}

func TestSweeper_StopsWithContext(t *testing.T) {
	sweeper := NewSweeper(newMemStore(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sweeper.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestSweeper_RejectsNonPositiveInterval(t *testing.T) {
	sweeper := NewSweeper(newMemStore(), 0)
	assert.Error(t, sweeper.Start(context.Background()))
}
