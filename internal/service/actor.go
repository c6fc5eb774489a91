package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/repository"
)

// ErrNotFound marks lookups whose target row does not exist. Services wrap it
// with the entity name and the HTTP layer maps it to 404.
var ErrNotFound = errors.New("not found")

// Actor identifies who performs a mutating operation and from where. Handlers
// fill it from the JWT claims and the client IP.
type Actor struct {
	UserID string
	IP     string
}

func (a Actor) uid() *uuid.UUID {
	if parsed, err := uuid.Parse(a.UserID); err == nil {
		return &parsed
	}
	return nil
}

// EventBroadcaster pushes events to connected websocket clients.
// Satisfied by *websocket.Hub and stubbed in tests.
type EventBroadcaster interface {
	BroadcastEvent(event string, data map[string]interface{})
}

// writeAudit records one audit log entry for a mutating operation. Called
// inside the operation's transaction so the entry commits with it.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, action, entityID, entityName string, details interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     actor.uid(),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
		IPAddress:  actor.IP,
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	metrics.AuditEntries.Inc()
	return nil
}
