package kb

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/opsdesk/opsdesk/internal/shared"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Service handles knowledgebase business logic.
type Service struct {
	repo   RepositoryPort
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns articles. Readers without edit rights see only published entries.
func (s *Service) List(ctx context.Context, publishedOnly bool) ([]Article, error) {
	return s.repo.List(ctx, publishedOnly)
}

// GetBySlug fetches an article by slug. Unpublished articles stay hidden
// unless includeDrafts is set.
func (s *Service) GetBySlug(ctx context.Context, slug string, includeDrafts bool) (Article, error) {
	a, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Article{}, err
	}
	if !a.Published && !includeDrafts {
		return Article{}, shared.ErrNotFound
	}
	return a, nil
}

// Get fetches an article by ID.
func (s *Service) Get(ctx context.Context, id int64) (Article, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts an article, deriving its slug from the title.
func (s *Service) Create(ctx context.Context, actorID string, a Article) (Article, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return Article{}, errors.New("kb: title required")
	}
	a.Slug = Slugify(a.Title)
	a.AuthorID = actorID
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Article{}, err
	}
	s.recordAudit(ctx, actorID, "kb.create", created.Slug)
	return created, nil
}

// Update validates and updates an article.
func (s *Service) Update(ctx context.Context, actorID string, a Article) (Article, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return Article{}, errors.New("kb: title required")
	}
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Article{}, err
	}
	s.recordAudit(ctx, actorID, "kb.update", updated.Slug)
	return updated, nil
}

// Delete removes an article.
func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "kb.delete", a.Slug)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, slug string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "kb_article",
		EntityID: slug,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit kb article", slog.Any("error", err))
	}
}

// Slugify lowercases a title and collapses runs of non-alphanumerics to dashes.
func Slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// ParseTags splits a comma separated tag list, dropping empties.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	var tags []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
