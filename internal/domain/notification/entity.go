package notification

import (
	"time"

	"gorm.io/datatypes"
)

// Type names the kind of alert a notification carries.
type Type string

const (
	TypeNewMessage        Type = "newMessage"
	TypeFreelancerApplied Type = "freelancerApplied"
)

// Notification is an unresolved alert for a receiver. It is deleted when the
// receiver acknowledges it. The unique index keeps at most one row per
// (receiver, type, reference).
type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ReceiverID  uint           `gorm:"not null;uniqueIndex:idx_notifications_receiver_type_reference,priority:1" json:"receiverId"`
	Type        Type           `gorm:"type:varchar(64);not null;uniqueIndex:idx_notifications_receiver_type_reference,priority:2" json:"type"`
	ReferenceID *uint          `gorm:"uniqueIndex:idx_notifications_receiver_type_reference,priority:3" json:"referenceId"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt   time.Time      `json:"createdAt"`
}
