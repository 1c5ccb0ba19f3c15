package application

import (
	"time"

	"marketplace-chat/internal/domain/user"
)

// Status of a freelancer's application to a task.
type Status int

const (
	StatusCreated  Status = 0
	StatusAccepted Status = 1
	StatusFinished Status = 2
	StatusCanceled Status = 3
	StatusRejected Status = 4
)

// Task is the posting an application was made to. Only the title matters here.
type Task struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ClientID  uint   `gorm:"not null;index" json:"clientId"`
	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Application is the conversation thread between one client and one freelancer.
type Application struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TaskID        uint      `gorm:"not null;index" json:"taskId"`
	ClientID      uint      `gorm:"not null;index" json:"clientId"`
	FreelancerID  uint      `gorm:"not null;index" json:"freelancerId"`
	Status        Status    `gorm:"not null;default:0" json:"status"`
	LastMessageID *uint     `json:"lastMessageId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Participants is the resolved two-party view of a conversation.
type Participants struct {
	ConversationID   uint   `json:"id"`
	ClientUserID     uint   `json:"clientUserId"`
	FreelancerUserID uint   `json:"freelancerUserId"`
	Title            string `json:"title"`
	Status           Status `json:"status"`
}

// Has reports whether userID is one of the two participants.
func (p Participants) Has(userID uint) bool {
	return userID != 0 && (userID == p.ClientUserID || userID == p.FreelancerUserID)
}

// Counterpart returns the participant that is not userID.
func (p Participants) Counterpart(userID uint) (uint, bool) {
	switch userID {
	case p.ClientUserID:
		return p.FreelancerUserID, true
	case p.FreelancerUserID:
		return p.ClientUserID, true
	}
	return 0, false
}

// SideOf returns the role userID plays in the conversation.
func (p Participants) SideOf(userID uint) (user.Role, bool) {
	switch userID {
	case p.ClientUserID:
		return user.RoleClient, true
	case p.FreelancerUserID:
		return user.RoleFreelancer, true
	}
	return 0, false
}
