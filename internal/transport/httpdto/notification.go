package httpdto

import (
	"encoding/json"
	"time"

	"marketplace-chat/internal/domain/notification"
)

type NotificationResponse struct {
	ID          uint              `json:"id"`
	Type        notification.Type `json:"type"`
	ReferenceID *uint             `json:"referenceId"`
	Payload     json.RawMessage   `json:"payload"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func NewNotificationResponses(items []notification.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:          n.ID,
			Type:        n.Type,
			ReferenceID: n.ReferenceID,
			Payload:     json.RawMessage(n.Payload),
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}

type ApplicationAppliedResponse struct {
	Pushed bool `json:"pushed"`
}
