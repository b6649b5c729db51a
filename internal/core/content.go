package core

import (
	"time"

	"github.com/google/uuid"
)

// News status values.
const (
	NewsDraft     = "draft"
	NewsPublished = "published"
)

// News is a portal article.
type News struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Slug              string     `json:"slug"`
	Summary           string     `json:"summary"`
	Content           string     `json:"content"`
	CoverImage        string     `json:"coverImage,omitempty"`
	Category          string     `json:"category"`
	Status            string     `json:"status"`
	PublishedAt       *time.Time `json:"publishedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	Published         bool       `json:"published"`
	AuthorName        string     `json:"authorName,omitempty"`
	Views             int        `json:"views"`
	Featured          bool       `json:"featured"`
	MetaDescription   string     `json:"metaDescription,omitempty"`
	FeaturedOrder     *int       `json:"featuredOrder,omitempty"`
	SourceName        string     `json:"sourceName,omitempty"`
	SourceURL         string     `json:"sourceUrl,omitempty"`
	SourcePublishedAt *time.Time `json:"sourcePublishedAt,omitempty"`
	SourceAuthor      string     `json:"sourceAuthor,omitempty"`
}

// Bank is a financial institution listed in the occurrence catalog.
type Bank struct {
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`
	Name   string    `json:"name"`
}

// OccurrenceReason explains a bank occurrence code.
type OccurrenceReason struct {
	ID          uuid.UUID  `json:"id"`
	BankID      uuid.UUID  `json:"bankId"`
	Occurrence  string     `json:"occurrence"`
	Reason      string     `json:"reason"`
	Description string     `json:"description"`
	Note        *string    `json:"note,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// OccurrenceReasonKey addresses one reason within a bank's catalog.
type OccurrenceReasonKey struct {
	BankID     uuid.UUID
	Occurrence string
	Reason     string
}

// OccurrenceReasonPatch holds a partial update. Nil fields keep their
// current value.
type OccurrenceReasonPatch struct {
	Description *string `json:"description"`
	Note        *string `json:"note"`
}
