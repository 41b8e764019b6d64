package entity

import (
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/pkg/enum"
)

type RandomnessRequestStatus string

var (
	RandomnessRequestPending   = enum.New(RandomnessRequestStatus("pending"))
	RandomnessRequestFulfilled = enum.New(RandomnessRequestStatus("fulfilled"))
	RandomnessRequestFailed    = enum.New(RandomnessRequestStatus("failed"))
)

type RandomnessRequest struct {
	Base

	LotteryID   string  `gorm:"index"`
	Lottery     Lottery `gorm:"foreignKey:LotteryID"`
	RequestID   string  `gorm:"uniqueIndex"`
	Seed        string
	Status      RandomnessRequestStatus `gorm:"index"`
	RequestedAt time.Time
	ResolvedAt  sql.NullTime
}
