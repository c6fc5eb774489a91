package model

import (
	"time"

	"github.com/google/uuid"
)

// Request represents a material request or item return moving through the
// pending -> approved -> completed workflow. Status values live in the
// workflow package; they are stored here as plain strings.
type Request struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestCode string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"request_code"`
	Type        string        `gorm:"type:varchar(30);not null;index" json:"type"` // material_request, item_return
	Status      string        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedBy *uuid.UUID    `gorm:"type:uuid;index" json:"requested_by"`
	Requester   *User         `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	Project     string        `gorm:"type:varchar(255)" json:"project"`
	Location    string        `gorm:"type:varchar(255)" json:"location"`
	TeamLeader  string        `gorm:"type:varchar(255)" json:"team_leader"`
	ISP         string        `gorm:"type:varchar(255)" json:"isp"`
	ReleaseBy   string        `gorm:"type:varchar(255)" json:"release_by"` // set at finalize
	Items       []RequestItem `gorm:"foreignKey:RequestID" json:"items"`
	Approvals   []Approval    `gorm:"foreignKey:RequestID" json:"approvals"`
	Rejection   *Rejection    `gorm:"foreignKey:RequestID" json:"rejection,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// RequestItem is one line of a Request. QuantityReceived/QuantityReturned
// stay nil until finalize records the reconciled amounts.
type RequestItem struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID         uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	ItemID            uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	Item              Item      `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	QuantityRequested int       `gorm:"type:int;not null" json:"quantity_requested"`
	QuantityReceived  *int      `gorm:"type:int" json:"quantity_received"`
	QuantityReturned  *int      `gorm:"type:int" json:"quantity_returned"`
}

// Approval is an append-only signature record. The first approval on a
// pending request performs the transition; later ones co-sign.
type Approval struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	ApproverName string     `gorm:"type:varchar(255);not null" json:"approver_name"`
	Signature    string     `gorm:"type:text" json:"signature"` // data-URL image captured by the client
	ApprovedBy   *uuid.UUID `gorm:"type:uuid;index" json:"approved_by"`
	Approver     *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Rejection records why a request was turned down. At most one per request.
type Rejection struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"request_id"`
	Reason       string     `gorm:"type:text;not null" json:"reason"`
	RejectorName string     `gorm:"type:varchar(255);not null" json:"rejector_name"`
	RejectedBy   *uuid.UUID `gorm:"type:uuid;index" json:"rejected_by"`
	Rejector     *User      `gorm:"foreignKey:RejectedBy" json:"rejector,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
