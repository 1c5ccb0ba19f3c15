package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of an outbox event
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

const (
	// EventNotificationEmail is a notification email that failed on first try.
	EventNotificationEmail = "notification.email"

	AggregateNotification = "notification"
)

// OutboxEvent stores deliveries that must be retried out-of-band.
type OutboxEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType     string    `gorm:"type:varchar(50);not null"`
	AggregateType string    `gorm:"type:varchar(50);not null"`
	AggregateID   string    `gorm:"type:varchar(36);not null"`
	Payload       []byte    `gorm:"not null"`
	Status        Status    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RetryCount    int       `gorm:"not null;default:0"`
	Error         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	ProcessedAt   *time.Time
}

// TableName returns the database table name
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
