package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (content, ticket_id, user_id, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		comment.Content,
		comment.TicketID,
		comment.UserID,
		comment.CreatedAt,
	).Scan(&comment.ID)
	return translateError(err)
}

// ListByTicket returns newest comments first.
func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	const query = `
        SELECT id, content, ticket_id, user_id, created_at
        FROM comments WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.Content,
			&comment.TicketID,
			&comment.UserID,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		comment.CreatedAt = comment.CreatedAt.UTC()
		result = append(result, comment)
	}
	return result, rows.Err()
}
