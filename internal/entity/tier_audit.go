package entity

import (
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/pkg/enum"
)

type TierAuditAction string

var (
	TierAuditSetManualTier    = enum.New(TierAuditAction("SET_MANUAL_TIER"))
	TierAuditRemoveManualTier = enum.New(TierAuditAction("REMOVE_MANUAL_TIER"))
)

// TierAuditEntry is append-only, so it carries no update or delete timestamps.
type TierAuditEntry struct {
	ID          string `gorm:"primarykey"`
	AffiliateID string `gorm:"index"`
	AdminID     string `gorm:"index"`
	Action      TierAuditAction
	OldTier     int
	NewTier     sql.NullInt32
	Reason      string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time `gorm:"index"`
}
