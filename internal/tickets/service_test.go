package tickets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk/internal/shared"
)

type stubTicketRepo struct {
	tickets map[int64]Ticket
	nextID  int64
}

func newStubTicketRepo() *stubTicketRepo {
	return &stubTicketRepo{tickets: make(map[int64]Ticket), nextID: 1}
}

func (s *stubTicketRepo) List(ctx context.Context) ([]Ticket, error) {
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTicketRepo) Get(ctx context.Context, id int64) (Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, shared.ErrNotFound
	}
	return t, nil
}

func (s *stubTicketRepo) Create(ctx context.Context, ticket Ticket) (Ticket, error) {
	ticket.ID = s.nextID
	s.nextID++
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (s *stubTicketRepo) Update(ctx context.Context, ticket Ticket) (Ticket, error) {
	if _, ok := s.tickets[ticket.ID]; !ok {
		return Ticket{}, shared.ErrNotFound
	}
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (s *stubTicketRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.tickets[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}

func TestCreateForcesOpenStatus(t *testing.T) {
	svc := NewService(newStubTicketRepo(), nil, nil)

	created, err := svc.Create(context.Background(), "7", Ticket{
		Subject:  "Laptop will not boot",
		Status:   StatusClosed,
		Priority: PriorityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, created.Status)
	require.Equal(t, PriorityHigh, created.Priority)
}

func TestCreateDefaultsPriority(t *testing.T) {
	svc := NewService(newStubTicketRepo(), nil, nil)

	created, err := svc.Create(context.Background(), "7", Ticket{Subject: "Monitor flicker", Priority: "whenever"})
	require.NoError(t, err)
	require.Equal(t, PriorityMedium, created.Priority)
}

func TestCreateRequiresSubject(t *testing.T) {
	svc := NewService(newStubTicketRepo(), nil, nil)
	_, err := svc.Create(context.Background(), "7", Ticket{Subject: "   "})
	require.Error(t, err)
}

func TestUpdateEnforcesTransitions(t *testing.T) {
	repo := newStubTicketRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "7", Ticket{Subject: "Printer jam", Priority: PriorityLow})
	require.NoError(t, err)

	created.Status = StatusResolved
	updated, err := svc.Update(ctx, "7", created)
	require.NoError(t, err)
	require.Equal(t, StatusResolved, updated.Status)

	// Resolved tickets cannot jump back to in_progress directly.
	updated.Status = StatusInProgress
	_, err = svc.Update(ctx, "7", updated)
	require.Error(t, err)

	// Reopening is allowed.
	updated.Status = StatusOpen
	reopened, err := svc.Update(ctx, "7", updated)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, reopened.Status)
}

func TestCanTransitionMatrix(t *testing.T) {
	require.True(t, CanTransition(StatusOpen, StatusOpen))
	require.True(t, CanTransition(StatusOpen, StatusInProgress))
	require.True(t, CanTransition(StatusClosed, StatusOpen))
	require.False(t, CanTransition(StatusClosed, StatusResolved))
	require.False(t, CanTransition(StatusResolved, StatusInProgress))
	require.False(t, CanTransition("bogus", StatusOpen))
}
