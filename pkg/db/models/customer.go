package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a directory entry; last_transaction_at is touched opportunistically
// whenever a sale is recorded against the customer.
type Customer struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName         string     `gorm:"column:first_name;not null"`
	LastName          string     `gorm:"column:last_name;not null"`
	Email             string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone             *string    `gorm:"column:phone"`
	LastTransactionAt *time.Time `gorm:"column:last_transaction_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
