package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
)

// CustomerDTO is the directory payload returned to clients.
type CustomerDTO struct {
	ID                uuid.UUID  `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Phone             *string    `json:"phone,omitempty"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewCustomerDTO builds a DTO from the persisted model.
func NewCustomerDTO(customer *models.Customer) *CustomerDTO {
	return &CustomerDTO{
		ID:                customer.ID,
		FirstName:         customer.FirstName,
		LastName:          customer.LastName,
		Email:             customer.Email,
		Phone:             customer.Phone,
		LastTransactionAt: customer.LastTransactionAt,
		CreatedAt:         customer.CreatedAt,
		UpdatedAt:         customer.UpdatedAt,
	}
}
