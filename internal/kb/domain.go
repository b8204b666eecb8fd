package kb

import "time"

// Article is a knowledgebase entry.
type Article struct {
	ID        int64
	Title     string
	Slug      string
	Body      string
	Tags      []string
	Published bool
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
