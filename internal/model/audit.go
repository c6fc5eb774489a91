package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"

	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"

	ActionCreateCategory = "CREATE_CATEGORY"
	ActionUpdateCategory = "UPDATE_CATEGORY"
	ActionDeleteCategory = "DELETE_CATEGORY"

	ActionCreateItem  = "CREATE_ITEM"
	ActionUpdateItem  = "UPDATE_ITEM"
	ActionDeleteItem  = "DELETE_ITEM"
	ActionAdjustStock = "ADJUST_STOCK"
	ActionIssueItem   = "ISSUE_ITEM"

	// Request workflow actions
	ActionCreateRequest   = "CREATE_REQUEST"
	ActionApproveRequest  = "APPROVE_REQUEST"
	ActionRejectRequest   = "REJECT_REQUEST"
	ActionFinalizeRequest = "FINALIZE_REQUEST"

	ActionCreateSupervisor = "CREATE_SUPERVISOR"
	ActionUpdateSupervisor = "UPDATE_SUPERVISOR"
	ActionDeleteSupervisor = "DELETE_SUPERVISOR"

	ActionUpdateSetting = "UPDATE_SETTING"
)

// AuditLog tracks Who, What, Where-from, and When for every mutating operation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	IPAddress  string     `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
