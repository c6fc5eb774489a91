package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/model"
	"stockflow/internal/worker"
)

// --- Stubs ---

type stubItemSource struct {
	below []model.Item
}

func (s *stubItemSource) ListBelowThreshold(_ context.Context) ([]model.Item, error) {
	return s.below, nil
}

type stubSupervisorSource struct {
	supervisors []model.Supervisor
}

func (s *stubSupervisorSource) ListActive(_ context.Context) ([]model.Supervisor, error) {
	return s.supervisors, nil
}

type stubBroadcaster struct {
	events []string
}

func (s *stubBroadcaster) BroadcastEvent(event string, _ map[string]interface{}) {
	s.events = append(s.events, event)
}

type stubEnqueuer struct {
	jobs []worker.EmailJob
}

func (s *stubEnqueuer) EnqueueEmail(_ context.Context, job worker.EmailJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func lowItem(name string, qty, threshold int) model.Item {
	return model.Item{
		ID:                uuid.New(),
		SKU:               "SKU-" + name,
		Name:              name,
		Quantity:          qty,
		LowStockThreshold: threshold,
	}
}

// --- Tests ---

func TestAlertFiresOncePerCrossing(t *testing.T) {
	item := lowItem("Drop Cable", 2, 5)
	items := &stubItemSource{below: []model.Item{item}}
	hub := &stubBroadcaster{}
	jobs := &stubEnqueuer{}
	supers := &stubSupervisorSource{supervisors: []model.Supervisor{{Email: "ops@example.com"}}}

	m := New(items, supers, hub, jobs, time.Second)

	require.NoError(t, m.Sweep(context.Background()))
	require.NoError(t, m.Sweep(context.Background()))
	require.NoError(t, m.Sweep(context.Background()))

	// One broadcast and one email despite three sweeps
	assert.Len(t, hub.events, 1)
	assert.Len(t, jobs.jobs, 1)
	assert.Equal(t, []string{"ops@example.com"}, jobs.jobs[0].To)
	assert.Contains(t, jobs.jobs[0].Body, "Drop Cable")
}

func TestAlertReArmsAfterRecovery(t *testing.T) {
	item := lowItem("Splitter", 1, 5)
	items := &stubItemSource{below: []model.Item{item}}
	hub := &stubBroadcaster{}
	jobs := &stubEnqueuer{}
	supers := &stubSupervisorSource{supervisors: []model.Supervisor{{Email: "ops@example.com"}}}

	m := New(items, supers, hub, jobs, time.Second)

	require.NoError(t, m.Sweep(context.Background()))
	assert.Len(t, hub.events, 1)

	// Stock replenished above threshold, item leaves the below list
	items.below = nil
	require.NoError(t, m.Sweep(context.Background()))
	assert.Len(t, hub.events, 1)

	// Crosses again, a second alert fires
	items.below = []model.Item{item}
	require.NoError(t, m.Sweep(context.Background()))
	assert.Len(t, hub.events, 2)
	assert.Len(t, jobs.jobs, 2)
}

func TestNoRecipientsNoJob(t *testing.T) {
	items := &stubItemSource{below: []model.Item{lowItem("ONU", 0, 3)}}
	jobs := &stubEnqueuer{}
	m := New(items, &stubSupervisorSource{}, &stubBroadcaster{}, jobs, time.Second)

	require.NoError(t, m.Sweep(context.Background()))
	assert.Empty(t, jobs.jobs)
}

func TestMultipleItemsOneEmail(t *testing.T) {
	items := &stubItemSource{below: []model.Item{
		lowItem("Patch Cord", 3, 10),
		lowItem("RJ45 Connector", 9, 20),
	}}
	jobs := &stubEnqueuer{}
	supers := &stubSupervisorSource{supervisors: []model.Supervisor{
		{Email: "a@example.com"}, {Email: "b@example.com"},
	}}
	m := New(items, supers, &stubBroadcaster{}, jobs, time.Second)

	require.NoError(t, m.Sweep(context.Background()))
	require.Len(t, jobs.jobs, 1)
	assert.Len(t, jobs.jobs[0].To, 2)
	assert.Contains(t, jobs.jobs[0].Body, "Patch Cord")
	assert.Contains(t, jobs.jobs[0].Body, "RJ45 Connector")
}
