package issuance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk/internal/shared"
)

type stubIssuanceRepo struct {
	records map[int64]Issuance
	nextID  int64
}

func newStubIssuanceRepo() *stubIssuanceRepo {
	return &stubIssuanceRepo{records: make(map[int64]Issuance), nextID: 1}
}

func (s *stubIssuanceRepo) List(ctx context.Context) ([]Issuance, error) {
	out := make([]Issuance, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubIssuanceRepo) Get(ctx context.Context, id int64) (Issuance, error) {
	rec, ok := s.records[id]
	if !ok {
		return Issuance{}, shared.ErrNotFound
	}
	return rec, nil
}

func (s *stubIssuanceRepo) Create(ctx context.Context, rec Issuance) (Issuance, error) {
	rec.ID = s.nextID
	s.nextID++
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *stubIssuanceRepo) MarkReturned(ctx context.Context, id int64, status string) (Issuance, error) {
	rec, ok := s.records[id]
	if !ok {
		return Issuance{}, shared.ErrNotFound
	}
	rec.Status = status
	s.records[id] = rec
	return rec, nil
}

func TestIssueGeneratesReference(t *testing.T) {
	svc := NewService(newStubIssuanceRepo(), nil, nil)

	created, err := svc.Issue(context.Background(), "7", Issuance{
		AssetTag:   "AST-1A2B3C4D",
		EmployeeID: 12,
	})
	require.NoError(t, err)
	require.Equal(t, StatusIssued, created.Status)
	require.True(t, strings.HasPrefix(created.Reference, "ISS-"))
	require.Len(t, created.Reference, len("ISS-")+8)
}

func TestIssueRequiresAssetAndEmployee(t *testing.T) {
	svc := NewService(newStubIssuanceRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "7", Issuance{EmployeeID: 12})
	require.Error(t, err)
	_, err = svc.Issue(ctx, "7", Issuance{AssetTag: "AST-1A2B3C4D"})
	require.Error(t, err)
}

func TestCloseValidatesStatus(t *testing.T) {
	repo := newStubIssuanceRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Issue(ctx, "7", Issuance{AssetTag: "AST-1A2B3C4D", EmployeeID: 12})
	require.NoError(t, err)

	_, err = svc.Close(ctx, "7", created.ID, "misplaced")
	require.Error(t, err)

	closed, err := svc.Close(ctx, "7", created.ID, StatusReturned)
	require.NoError(t, err)
	require.Equal(t, StatusReturned, closed.Status)
}
