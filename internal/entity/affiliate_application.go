package entity

import (
	"database/sql"

	"github.com/powersol-lab/backend/pkg/enum"
)

type AffiliateApplicationStatus string

var (
	AffiliateApplicationPending  = enum.New(AffiliateApplicationStatus("pending"))
	AffiliateApplicationApproved = enum.New(AffiliateApplicationStatus("approved"))
	AffiliateApplicationRejected = enum.New(AffiliateApplicationStatus("rejected"))
)

type AffiliateApplication struct {
	Base

	UserID              string `gorm:"uniqueIndex"`
	User                User   `gorm:"foreignKey:UserID"`
	Wallet              string
	FullName            string
	Email               string
	Country             string
	SocialMedia         string
	MarketingExperience string
	MarketingStrategy   string
	Status              AffiliateApplicationStatus `gorm:"index"`

	AdminNotes string
	ReviewedBy sql.NullString
	ReviewedAt sql.NullTime
}
