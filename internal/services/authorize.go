package services

import (
	"context"
	"errors"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/repository"
	chat_errors "marketplace-chat/pkg/errors"
)

// loadParticipants resolves the conversation and checks that userID is one of
// its two participants. It is re-evaluated on every call, never cached.
// Unknown conversations and outsiders both come back as authorization
// denials so callers can stay silent about which one it was.
func loadParticipants(ctx context.Context, apps repository.ApplicationRepository, userID, conversationID uint) (application.Participants, error) {
	if conversationID == 0 {
		return application.Participants{}, chat_errors.ErrNotFound
	}
	p, err := apps.GetParticipants(ctx, conversationID)
	if err != nil {
		if errors.Is(err, chat_errors.ErrNotFound) {
			return application.Participants{}, chat_errors.ErrNotFound
		}
		return application.Participants{}, err
	}
	if !p.Has(userID) {
		return application.Participants{}, chat_errors.ErrForbidden
	}
	return p, nil
}
