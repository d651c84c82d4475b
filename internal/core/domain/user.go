package domain

import "time"

// Account is a registered user. Username is the token subject.
type Account struct {
	Username     string    `gorm:"primaryKey;type:text" json:"username"`
	PasswordHash string    `gorm:"not null;type:text" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}
