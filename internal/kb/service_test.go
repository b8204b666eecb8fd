package kb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk/internal/shared"
)

type stubArticleRepo struct {
	articles map[int64]Article
	nextID   int64
}

func newStubArticleRepo() *stubArticleRepo {
	return &stubArticleRepo{articles: make(map[int64]Article), nextID: 1}
}

func (s *stubArticleRepo) List(ctx context.Context, publishedOnly bool) ([]Article, error) {
	var out []Article
	for _, a := range s.articles {
		if publishedOnly && !a.Published {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *stubArticleRepo) GetBySlug(ctx context.Context, slug string) (Article, error) {
	for _, a := range s.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return Article{}, shared.ErrNotFound
}

func (s *stubArticleRepo) Get(ctx context.Context, id int64) (Article, error) {
	a, ok := s.articles[id]
	if !ok {
		return Article{}, shared.ErrNotFound
	}
	return a, nil
}

func (s *stubArticleRepo) Create(ctx context.Context, a Article) (Article, error) {
	for _, existing := range s.articles {
		if existing.Slug == a.Slug {
			return Article{}, shared.ErrDuplicate
		}
	}
	a.ID = s.nextID
	s.nextID++
	s.articles[a.ID] = a
	return a, nil
}

func (s *stubArticleRepo) Update(ctx context.Context, a Article) (Article, error) {
	existing, ok := s.articles[a.ID]
	if !ok {
		return Article{}, shared.ErrNotFound
	}
	existing.Title = a.Title
	existing.Body = a.Body
	existing.Tags = a.Tags
	existing.Published = a.Published
	s.articles[a.ID] = existing
	return existing, nil
}

func (s *stubArticleRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.articles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.articles, id)
	return nil
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"VPN Setup Guide":           "vpn-setup-guide",
		"  Wi-Fi: Office (5GHz) ":   "wi-fi-office-5ghz",
		"Already-slugged":           "already-slugged",
		"---":                       "",
		"Ümlauts & Special!! Chars": "mlauts-special-chars",
	}
	for input, want := range cases {
		require.Equal(t, want, Slugify(input), "input %q", input)
	}
}

func TestParseTags(t *testing.T) {
	require.Equal(t, []string{"network", "vpn"}, ParseTags("network, vpn"))
	require.Equal(t, []string{"solo"}, ParseTags(" solo "))
	require.Nil(t, ParseTags(" , ,"))
	require.Nil(t, ParseTags(""))
}

func TestCreateDerivesSlugAndAuthor(t *testing.T) {
	svc := NewService(newStubArticleRepo(), nil, nil)

	created, err := svc.Create(context.Background(), "7", Article{
		Title: "Reset Your Password",
		Body:  "Steps to reset.",
	})
	require.NoError(t, err)
	require.Equal(t, "reset-your-password", created.Slug)
	require.Equal(t, "7", created.AuthorID)
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := NewService(newStubArticleRepo(), nil, nil)
	_, err := svc.Create(context.Background(), "7", Article{Title: "   "})
	require.Error(t, err)
}

func TestGetBySlugHidesDrafts(t *testing.T) {
	repo := newStubArticleRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	draft, err := svc.Create(ctx, "7", Article{Title: "Draft Runbook", Published: false})
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, draft.Slug, false)
	require.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.GetBySlug(ctx, draft.Slug, true)
	require.NoError(t, err)
	require.Equal(t, draft.ID, got.ID)
}

func TestListFiltersUnpublished(t *testing.T) {
	repo := newStubArticleRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "7", Article{Title: "Published Guide", Published: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "7", Article{Title: "Hidden Draft", Published: false})
	require.NoError(t, err)

	visible, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, "published-guide", visible[0].Slug)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
