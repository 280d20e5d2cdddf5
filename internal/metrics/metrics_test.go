package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/subscriptions", "201", 0.1)
	RecordHTTPRequest("POST", "/subscriptions", "201", 0.2)
	RecordHTTPRequest("POST", "/subscriptions", "400", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/subscriptions", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/subscriptions", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordTransition(t *testing.T) {
	SubscriptionTransitionsTotal.Reset()

	RecordTransition("expire", "sweeper")
	RecordTransition("expire", "lazy")
	RecordTransition("expire", "sweeper")

	assert.Equal(t, float64(2), testutil.ToFloat64(SubscriptionTransitionsTotal.WithLabelValues("expire", "sweeper")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SubscriptionTransitionsTotal.WithLabelValues("expire", "lazy")))
}

func TestRecordConflict(t *testing.T) {
	SubscriptionConflictsTotal.Reset()

	RecordConflict("cancel")

	assert.Equal(t, float64(1), testutil.ToFloat64(SubscriptionConflictsTotal.WithLabelValues("cancel")))
}

func TestRecordSweep(t *testing.T) {
	SweepRunsTotal.Reset()
	beforeExpired := testutil.ToFloat64(SweepExpiredTotal)
	beforeFailed := testutil.ToFloat64(SweepFailuresTotal)

	RecordSweep("ok", 3, 1, 0.01)

	assert.Equal(t, float64(1), testutil.ToFloat64(SweepRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, beforeExpired+3, testutil.ToFloat64(SweepExpiredTotal))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(SweepFailuresTotal))
}

func TestRecordPlanCacheAndEvents(t *testing.T) {
	PlanCacheRequestsTotal.Reset()
	EventsPublishedTotal.Reset()
	EmailsSentTotal.Reset()

	RecordPlanCache("hit")
	RecordPlanCache("miss")
	RecordPlanCache("hit")
	RecordEvent("subscription.created", "ok")
	RecordEmail("queued")

	assert.Equal(t, float64(2), testutil.ToFloat64(PlanCacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(PlanCacheRequestsTotal.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("subscription.created", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EmailsSentTotal.WithLabelValues("queued")))
}
