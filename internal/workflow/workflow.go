// Package workflow holds the request lifecycle rules: which status
// transitions are legal and how finalize quantities reconcile against live
// stock. It is pure; persistence and locking stay in the service layer.
package workflow

import (
	"fmt"

	"github.com/google/uuid"
)

// Request status values as stored in the requests table
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// Request types
const (
	TypeMaterialRequest = "material_request"
	TypeItemReturn      = "item_return"
)

// transitions is the complete legal transition table. completed and rejected
// are terminal.
var transitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted, StatusRejected},
}

// TransitionError reports an illegal status transition attempt.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition request from %s to %s", e.From, e.To)
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to, returning a *TransitionError when illegal.
func Transition(from, to string) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// ValidType reports whether t is a known request type.
func ValidType(t string) bool {
	return t == TypeMaterialRequest || t == TypeItemReturn
}

// FinalizeLine carries one request line plus the live stock it reconciles
// against. CurrentStock must be read under a row lock by the caller.
type FinalizeLine struct {
	ItemID           uuid.UUID
	ItemName         string
	QuantityReceived int
	QuantityReturned int
	CurrentStock     int
}

// LineError identifies which finalize line failed validation and why.
type LineError struct {
	Index    int
	ItemName string
	Reason   string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Index+1, e.ItemName, e.Reason)
}

// ValidateFinalize checks every line before any stock mutation happens.
// For material requests each received quantity must be non-negative and must
// not exceed current stock; for item returns the returned quantity must be
// non-negative. The first failing line aborts the whole finalize.
func ValidateFinalize(requestType string, lines []FinalizeLine) error {
	for i, line := range lines {
		switch requestType {
		case TypeMaterialRequest:
			if line.QuantityReceived < 0 {
				return &LineError{Index: i, ItemName: line.ItemName, Reason: "quantity received must be non-negative"}
			}
			if line.QuantityReceived > line.CurrentStock {
				return &LineError{
					Index:    i,
					ItemName: line.ItemName,
					Reason: fmt.Sprintf("exceeds available stock (requested %d, available %d)",
						line.QuantityReceived, line.CurrentStock),
				}
			}
		case TypeItemReturn:
			if line.QuantityReturned < 0 {
				return &LineError{Index: i, ItemName: line.ItemName, Reason: "quantity returned must be non-negative"}
			}
		default:
			return fmt.Errorf("unknown request type: %s", requestType)
		}
	}
	return nil
}

// StockDelta returns the signed stock change one finalized line applies:
// negative for material requests, positive for item returns.
func StockDelta(requestType string, line FinalizeLine) int {
	if requestType == TypeItemReturn {
		return line.QuantityReturned
	}
	return -line.QuantityReceived
}
