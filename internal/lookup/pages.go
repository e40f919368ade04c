package lookup

import (
	"context"
	"fmt"

	"github.com/stellarlinkco/rosterbot/internal/bus"
)

// tryEditInPlace rewrites the displayed page message. Callers hold the chat lock.
func (s *Service) tryEditInPlace(ctx context.Context, messageID int, msg bus.OutboundMessage) error {
	if err := s.transport.EditText(ctx, messageID, msg); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// deleteAndResend replaces the page message with a fresh one. The old message
// is deleted best effort; the new id and page are recorded only after the
// send succeeds. Callers hold the chat lock.
func (s *Service) deleteAndResend(ctx context.Context, chatID string, oldID int, msg bus.OutboundMessage, page int) error {
	if oldID != 0 {
		s.deleteBestEffort(ctx, chatID, oldID)
		s.cache.SetDisplayedMessage(chatID, 0)
	}
	id, err := s.transport.SendText(ctx, msg)
	if err != nil {
		return fmt.Errorf("resend page %d: %w", page, err)
	}
	s.cache.SetDisplayedMessage(chatID, id)
	s.cache.SetPage(chatID, page)
	return nil
}

// clearDisplayed removes the chat's page message, if one is shown, and forgets
// its id. Callers hold the chat lock.
func (s *Service) clearDisplayed(ctx context.Context, chatID string) {
	st, ok := s.cache.Get(chatID)
	if !ok || st.MessageID == 0 {
		return
	}
	s.deleteBestEffort(ctx, chatID, st.MessageID)
	s.cache.SetDisplayedMessage(chatID, 0)
}

func (s *Service) deleteBestEffort(ctx context.Context, chatID string, messageID int) {
	if err := s.transport.DeleteMessage(ctx, chatID, messageID); err != nil {
		s.logger.Debug("delete message", "chat", chatID, "message_id", messageID, "error", err)
	}
}
