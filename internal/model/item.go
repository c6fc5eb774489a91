package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item represents a stock-keeping entry in the inventory
type Item struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU               string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	CategoryID        *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category          *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Quantity          int             `gorm:"type:int;default:0;not null" json:"quantity"`
	LowStockThreshold int             `gorm:"type:int;default:0;not null" json:"low_stock_threshold"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_cost"`
	Unit              string          `gorm:"type:varchar(50)" json:"unit"` // pcs, m, box...
	Location          string          `gorm:"type:varchar(255)" json:"location"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

// MovementType Enum Simulation
const (
	MovementIssue      = "ISSUE"       // stock handed out via items-out
	MovementRequestOut = "REQUEST_OUT" // stock consumed by request finalize
	MovementReturnIn   = "RETURN_IN"   // stock returned via item_return finalize
	MovementAdjust     = "ADJUST"      // manual correction
)

// StockMovement records stock changes strictly, one row per mutation
type StockMovement struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"item_id"`
	Item            Item       `gorm:"foreignKey:ItemID" json:"-"`
	ReferenceID     *uuid.UUID `gorm:"type:uuid;index" json:"reference_id"` // request or issuance id, nullable for manual adjustments
	MovementType    string     `gorm:"type:varchar(20);not null" json:"movement_type"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Issuance represents stock handed out directly ("items out"), outside the
// request workflow
type Issuance struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	Item      Item      `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
	IssuedTo  string    `gorm:"type:varchar(255);not null" json:"issued_to"`
	Project   string    `gorm:"type:varchar(255)" json:"project"`
	IssuedBy  *uuid.UUID `gorm:"type:uuid;index" json:"issued_by"`
	Issuer    *User     `gorm:"foreignKey:IssuedBy" json:"issuer,omitempty"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
