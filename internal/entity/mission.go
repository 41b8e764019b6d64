package entity

import (
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/pkg/enum"
)

type MissionType string

var (
	MissionDaily    = enum.New(MissionType("daily"))
	MissionWeekly   = enum.New(MissionType("weekly"))
	MissionSocial   = enum.New(MissionType("social"))
	MissionActivity = enum.New(MissionType("activity"))
)

// Period is the length of a progress window. Missions without one complete
// at most once.
func (t MissionType) Period() time.Duration {
	switch t {
	case MissionDaily:
		return 24 * time.Hour
	case MissionWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

type MissionGoal string

var (
	MissionGoalTickets      = enum.New(MissionGoal("tickets"))
	MissionGoalLotteryTypes = enum.New(MissionGoal("lottery_types"))
	MissionGoalReferrals    = enum.New(MissionGoal("referrals"))
	MissionGoalManual       = enum.New(MissionGoal("manual"))
)

type UserMission struct {
	Base

	UserID     string `gorm:"uniqueIndex:idx_user_mission"`
	User       User   `gorm:"foreignKey:UserID"`
	MissionKey string `gorm:"uniqueIndex:idx_user_mission"`
	Progress   int

	// LotteryTypes lists the lottery types bought in the current window,
	// comma separated.
	LotteryTypes string

	WindowStart time.Time
	Completed   bool
	CompletedAt sql.NullTime

	// ClaimID is the reward claim of the last completion.
	ClaimID sql.NullString
}

// WindowEnded reports whether the progress window of a periodic mission is
// over at now.
func (m *UserMission) WindowEnded(missionType MissionType, now time.Time) bool {
	period := missionType.Period()
	return period > 0 && !now.Before(m.WindowStart.Add(period))
}
