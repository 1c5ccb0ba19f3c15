package message

import (
	"time"

	"marketplace-chat/internal/domain/user"
)

// Message is immutable once created, except for Read.
type Message struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SenderID      uint      `gorm:"not null;index" json:"senderId"`
	ReceiverID    uint      `gorm:"not null;index:idx_messages_receiver_unread,priority:1" json:"receiverId"`
	ApplicationID uint      `gorm:"not null;index;index:idx_messages_receiver_unread,priority:2" json:"conversationId"`
	Role          user.Role `gorm:"not null" json:"role"`
	Text          *string   `gorm:"type:text" json:"text"`
	Read          bool      `gorm:"not null;default:false;index:idx_messages_receiver_unread,priority:3" json:"read"`
	CreatedAt     time.Time `json:"createdAt"`

	Attachments []File `gorm:"many2many:file_messages;" json:"attachments"`
}

// File is an uploaded attachment. Upload and signing happen elsewhere; this
// core only links existing rows to messages.
type File struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FileName   string    `gorm:"type:varchar(512);not null" json:"fileName"`
	Type       string    `gorm:"type:varchar(255)" json:"type"`
	UploadedBy uint      `gorm:"not null;index" json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Draft is the input of the send pipeline.
type Draft struct {
	Text           *string   `json:"text"`
	ConversationID uint      `json:"conversationId"`
	AttachmentIDs  []uint    `json:"attachmentIds"`
	Role           user.Role `json:"role"`
}

// Empty reports a draft that carries neither text nor attachments.
func (d Draft) Empty() bool {
	return (d.Text == nil || *d.Text == "") && len(d.UniqueAttachmentIDs()) == 0
}

// UniqueAttachmentIDs returns AttachmentIDs without duplicates or zero ids,
// preserving order.
func (d Draft) UniqueAttachmentIDs() []uint {
	seen := make(map[uint]struct{}, len(d.AttachmentIDs))
	ids := make([]uint, 0, len(d.AttachmentIDs))
	for _, id := range d.AttachmentIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
