package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityRepository stores audit entries. There is no update or delete.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Activity, error)
}

type activityRepository struct {
	db DBTX
}

// NewActivityRepository builds repository.
func NewActivityRepository(db DBTX) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (action, details, ticket_id, user_id, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		activity.Action,
		activity.Details,
		activity.TicketID,
		activity.UserID,
		activity.CreatedAt,
	).Scan(&activity.ID)
	return translateError(err)
}

// ListByTicket returns newest entries first.
func (r *activityRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Activity, error) {
	const query = `
        SELECT id, action, COALESCE(details, ''), ticket_id, user_id, created_at
        FROM activities WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.Action,
			&activity.Details,
			&activity.TicketID,
			&activity.UserID,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		activity.CreatedAt = activity.CreatedAt.UTC()
		result = append(result, activity)
	}
	return result, rows.Err()
}
