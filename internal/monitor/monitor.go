// Package monitor runs the low-stock sweep: a scheduled task comparing item
// quantities against their thresholds and firing edge-triggered alerts.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/websocket"
	"stockflow/internal/worker"
)

// ItemSource supplies the items currently at or below their threshold.
type ItemSource interface {
	ListBelowThreshold(ctx context.Context) ([]model.Item, error)
}

// SupervisorSource supplies the alert recipients.
type SupervisorSource interface {
	ListActive(ctx context.Context) ([]model.Supervisor, error)
}

// Broadcaster pushes events to connected clients. Satisfied by *websocket.Hub.
type Broadcaster interface {
	BroadcastEvent(event string, data map[string]interface{})
}

// Monitor sweeps the inventory on a fixed interval. An item alerts once when
// it crosses at-or-below its threshold and re-arms only after its quantity
// rises back above the threshold. The notified set is in-memory, so a process
// restart clears it.
type Monitor struct {
	items       ItemSource
	supervisors SupervisorSource
	hub         Broadcaster
	jobs        worker.EmailEnqueuer
	interval    time.Duration

	mu       sync.Mutex
	notified map[uuid.UUID]bool
}

func New(items ItemSource, supervisors SupervisorSource, hub Broadcaster, jobs worker.EmailEnqueuer, interval time.Duration) *Monitor {
	return &Monitor{
		items:       items,
		supervisors: supervisors,
		hub:         hub,
		jobs:        jobs,
		interval:    interval,
		notified:    make(map[uuid.UUID]bool),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", m.interval).Msg("low-stock monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("low-stock monitor stopped")
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("low-stock sweep failed")
			}
		}
	}
}

// Sweep performs one pass: detect new threshold crossings, alert for them,
// and re-arm items that recovered.
func (m *Monitor) Sweep(ctx context.Context) error {
	below, err := m.items.ListBelowThreshold(ctx)
	if err != nil {
		return fmt.Errorf("list below threshold: %w", err)
	}

	newly := m.detect(below)
	if len(newly) == 0 {
		return nil
	}

	for _, item := range newly {
		metrics.LowStockAlerts.Inc()
		if m.hub != nil {
			m.hub.BroadcastEvent(websocket.EventLowStock, map[string]interface{}{
				"item_id":   item.ID.String(),
				"sku":       item.SKU,
				"name":      item.Name,
				"quantity":  item.Quantity,
				"threshold": item.LowStockThreshold,
			})
		}
		log.Warn().Str("sku", item.SKU).Int("quantity", item.Quantity).
			Int("threshold", item.LowStockThreshold).Msg("item below low-stock threshold")
	}

	if m.jobs != nil {
		if err := m.notifySupervisors(ctx, newly); err != nil {
			// Alert state is already recorded; the email is best-effort
			log.Error().Err(err).Msg("failed to enqueue supervisor alert")
		}
	}

	return nil
}

// detect updates the notified set against the current below-threshold list
// and returns the items that newly crossed.
func (m *Monitor) detect(below []model.Item) []model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[uuid.UUID]bool, len(below))
	var newly []model.Item
	for _, item := range below {
		current[item.ID] = true
		if !m.notified[item.ID] {
			m.notified[item.ID] = true
			newly = append(newly, item)
		}
	}

	// Re-arm items that rose back above their threshold
	for id := range m.notified {
		if !current[id] {
			delete(m.notified, id)
		}
	}

	return newly
}

func (m *Monitor) notifySupervisors(ctx context.Context, items []model.Item) error {
	supervisors, err := m.supervisors.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list supervisors: %w", err)
	}
	if len(supervisors) == 0 {
		return nil
	}

	to := make([]string, 0, len(supervisors))
	for _, s := range supervisors {
		to = append(to, s.Email)
	}

	var b strings.Builder
	b.WriteString("The following items fell to or below their low-stock threshold:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%s): %d left, threshold %d\n",
			item.Name, item.SKU, item.Quantity, item.LowStockThreshold)
	}

	subject := fmt.Sprintf("Low stock alert: %d item(s) below threshold", len(items))
	return m.jobs.EnqueueEmail(ctx, worker.EmailJob{To: to, Subject: subject, Body: b.String()})
}
