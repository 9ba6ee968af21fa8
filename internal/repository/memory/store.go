// Package memory provides a process-local Store used for demos and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type state struct {
	users      map[int64]domain.User
	tickets    map[int64]domain.Ticket
	comments   map[int64]domain.Comment
	activities map[int64]domain.Activity

	nextUserID     int64
	nextTicketID   int64
	nextCommentID  int64
	nextActivityID int64
}

func newState() *state {
	return &state{
		users:          make(map[int64]domain.User),
		tickets:        make(map[int64]domain.Ticket),
		comments:       make(map[int64]domain.Comment),
		activities:     make(map[int64]domain.Activity),
		nextUserID:     1,
		nextTicketID:   1,
		nextCommentID:  1,
		nextActivityID: 1,
	}
}

func (s *state) clone() *state {
	c := &state{
		users:          make(map[int64]domain.User, len(s.users)),
		tickets:        make(map[int64]domain.Ticket, len(s.tickets)),
		comments:       make(map[int64]domain.Comment, len(s.comments)),
		activities:     make(map[int64]domain.Activity, len(s.activities)),
		nextUserID:     s.nextUserID,
		nextTicketID:   s.nextTicketID,
		nextCommentID:  s.nextCommentID,
		nextActivityID: s.nextActivityID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v.Clone()
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.activities {
		c.activities[k] = v
	}
	return c
}

// Store keeps every record in maps guarded by a single mutex.
// WithinTx holds the lock for the whole callback and restores a snapshot on error.
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) repos(inTx bool) repository.Repositories {
	h := handle{store: s, inTx: inTx}
	return repository.Repositories{
		Users:      userRepo{h},
		Tickets:    ticketRepo{h},
		Comments:   commentRepo{h},
		Activities: activityRepo{h},
	}
}

type handle struct {
	store *Store
	inTx  bool
}

// lock acquires the store mutex unless the caller already holds it through WithinTx.
func (h handle) lock() (*state, func()) {
	if h.inTx {
		return h.store.data, func() {}
	}
	h.store.mu.Lock()
	return h.store.data, h.store.mu.Unlock
}

type userRepo struct{ handle }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	data, unlock := r.lock()
	defer unlock()
	for _, existing := range data.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	user.ID = data.nextUserID
	data.nextUserID++
	data.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	data, unlock := r.lock()
	defer unlock()
	user, ok := data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	data, unlock := r.lock()
	defer unlock()
	for _, user := range data.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	data, unlock := r.lock()
	defer unlock()
	result := make([]domain.User, 0, len(data.users))
	for _, user := range data.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type ticketRepo struct{ handle }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	data, unlock := r.lock()
	defer unlock()
	for _, existing := range data.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	ticket.ID = data.nextTicketID
	data.nextTicketID++
	data.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	data, unlock := r.lock()
	defer unlock()
	stored, ok := data.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := ticket.Clone()
	stored.Status = next.Status
	stored.AssignedToID = next.AssignedToID
	stored.UpdatedAt = next.UpdatedAt
	data.tickets[ticket.ID] = stored
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	data, unlock := r.lock()
	defer unlock()
	ticket, ok := data.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := ticket.Clone()
	return &t, nil
}

func (r ticketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	data, unlock := r.lock()
	defer unlock()
	for _, ticket := range data.tickets {
		if ticket.TicketNumber == number {
			t := ticket.Clone()
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r ticketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	data, unlock := r.lock()
	defer unlock()

	var search string
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	result := make([]domain.Ticket, 0, len(data.tickets))
	for _, ticket := range data.tickets {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.AssignedToID != nil && (ticket.AssignedToID == nil || *ticket.AssignedToID != *filter.AssignedToID) {
			continue
		}
		if filter.CreatedByID != nil && ticket.CreatedByID != *filter.CreatedByID {
			continue
		}
		if search != "" && !matchesSearch(ticket, search) {
			continue
		}
		result = append(result, ticket.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		end := offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

func (r ticketRepo) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	data, unlock := r.lock()
	defer unlock()
	counts := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, ticket := range data.tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

type commentRepo struct{ handle }

func (r commentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	data, unlock := r.lock()
	defer unlock()
	comment.ID = data.nextCommentID
	data.nextCommentID++
	data.comments[comment.ID] = *comment
	return nil
}

func (r commentRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	data, unlock := r.lock()
	defer unlock()
	var result []domain.Comment
	for _, comment := range data.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type activityRepo struct{ handle }

func (r activityRepo) Create(ctx context.Context, activity *domain.Activity) error {
	data, unlock := r.lock()
	defer unlock()
	activity.ID = data.nextActivityID
	data.nextActivityID++
	data.activities[activity.ID] = *activity
	return nil
}

func (r activityRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Activity, error) {
	data, unlock := r.lock()
	defer unlock()
	var result []domain.Activity
	for _, activity := range data.activities {
		if activity.TicketID == ticketID {
			result = append(result, activity)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

func matchesSearch(ticket domain.Ticket, search string) bool {
	return strings.Contains(strings.ToLower(ticket.Title), search) ||
		strings.Contains(strings.ToLower(ticket.Description), search) ||
		strings.Contains(strings.ToLower(ticket.TicketNumber), search)
}

var _ repository.Store = (*Store)(nil)
