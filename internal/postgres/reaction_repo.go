package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type ReactionRepository struct {
	db *pgxpool.Pool
}

func NewReactionRepository(db *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func (r *ReactionRepository) Save(ctx context.Context, rc domain.Reaction) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_reactions (id, message_id, room, emoji, reactor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, rc.ID, rc.MessageID, rc.Room, rc.Emoji, rc.Reactor, rc.CreatedAt)
	return err
}

// ListByMessage returns reactions in append order.
func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.Reaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, message_id, room, emoji, reactor, created_at
		FROM message_reactions
		WHERE message_id = $1
		ORDER BY created_at ASC, id ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reaction
	for rows.Next() {
		var rc domain.Reaction
		if err := rows.Scan(&rc.ID, &rc.MessageID, &rc.Room, &rc.Emoji, &rc.Reactor, &rc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}

	return out, rows.Err()
}
