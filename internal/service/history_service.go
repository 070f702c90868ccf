package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
)

// HistoryService is the storage collaborator: the dispatcher writes
// committed messages and reactions through it, and the HTTP surface reads
// history back. Live delivery never depends on it.
type HistoryService struct {
	messageRepo  *postgres.MessageRepository
	reactionRepo *postgres.ReactionRepository
}

func NewHistoryService(messageRepo *postgres.MessageRepository, reactionRepo *postgres.ReactionRepository) *HistoryService {
	return &HistoryService{
		messageRepo:  messageRepo,
		reactionRepo: reactionRepo,
	}
}

func (s *HistoryService) SaveMessage(ctx context.Context, m domain.Message) error {
	if err := s.messageRepo.Save(ctx, m); err != nil {
		return fmt.Errorf("messageRepo.Save: %w", err)
	}
	return nil
}

func (s *HistoryService) SaveReaction(ctx context.Context, r domain.Reaction) error {
	if err := s.reactionRepo.Save(ctx, r); err != nil {
		return fmt.Errorf("reactionRepo.Save: %w", err)
	}
	return nil
}

// History returns a room's persisted messages with cursor pagination.
func (s *HistoryService) History(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error) {
	return s.messageRepo.History(ctx, room, after, limit)
}

// Reactions returns the persisted reactions of one message, append order.
func (s *HistoryService) Reactions(ctx context.Context, messageID string) ([]domain.Reaction, error) {
	return s.reactionRepo.ListByMessage(ctx, messageID)
}
