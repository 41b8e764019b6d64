package entity

type User struct {
	Base

	Wallet  string `gorm:"uniqueIndex"`
	IsAdmin bool

	PowerPoints int64
}
