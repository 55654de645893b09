package outbox

import (
	"gorm.io/gorm"

	"github.com/bitetrack/bitetrack-backend/pkg/db/models"
)

// Dead letter error messages are capped so one runaway stack trace cannot
// bloat the table.
const dlqErrorMessageCap = 1024

// DLQRepository writes terminal publish failures to the dead letter table.
// Writes ride the publisher's transaction; the repository holds no handle.
type DLQRepository struct{}

func NewDLQRepository() *DLQRepository {
	return &DLQRepository{}
}

// InsertTx appends entry on the caller's transaction, alongside the outbox
// row update that closes the event out.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errNoTx
	}
	if entry.ErrorMessage != nil {
		capped := capDLQMessage(*entry.ErrorMessage)
		entry.ErrorMessage = &capped
	}
	return tx.Create(&entry).Error
}

func capDLQMessage(message string) string {
	if len(message) > dlqErrorMessageCap {
		return message[:dlqErrorMessageCap]
	}
	return message
}
