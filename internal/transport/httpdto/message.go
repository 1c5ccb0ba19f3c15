package httpdto

import (
	"time"

	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/user"
)

type AttachmentResponse struct {
	ID       uint   `json:"id"`
	FileName string `json:"fileName"`
	Type     string `json:"type"`
}

type MessageResponse struct {
	ID             uint                 `json:"id"`
	ConversationID uint                 `json:"conversationId"`
	SenderID       uint                 `json:"senderId"`
	ReceiverID     uint                 `json:"receiverId"`
	Role           user.Role            `json:"role"`
	Text           *string              `json:"text"`
	Read           bool                 `json:"read"`
	CreatedAt      time.Time            `json:"createdAt"`
	Attachments    []AttachmentResponse `json:"attachments"`
}

type MessageHistoryResponse struct {
	Messages []MessageResponse `json:"messages"`
	// NextBefore is the cursor for the next older page, zero when exhausted.
	NextBefore uint `json:"nextBefore"`
}

func NewMessageResponse(m message.Message) MessageResponse {
	attachments := make([]AttachmentResponse, 0, len(m.Attachments))
	for _, f := range m.Attachments {
		attachments = append(attachments, AttachmentResponse{ID: f.ID, FileName: f.FileName, Type: f.Type})
	}
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ApplicationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Role:           m.Role,
		Text:           m.Text,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
		Attachments:    attachments,
	}
}

func NewMessageHistoryResponse(messages []message.Message, limit int) MessageHistoryResponse {
	resp := MessageHistoryResponse{Messages: make([]MessageResponse, 0, len(messages))}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(m))
	}
	if n := len(messages); n > 0 && n == limit {
		resp.NextBefore = messages[n-1].ID
	}
	return resp
}
