package http

import (
	"time"

	"folio/app/internal/content"
	"folio/app/internal/ordering"
	"folio/app/internal/revision"
	"folio/app/internal/translation"
	"folio/app/internal/workflow"
)

type contentView struct {
	ID           uint                      `json:"id"`
	Type         content.Type              `json:"type"`
	ParentID     *uint                     `json:"parent_id"`
	Ordering     int                       `json:"ordering"`
	AuthorID     string                    `json:"author_id"`
	Attributes   map[string]any            `json:"attributes"`
	Status       workflow.Status           `json:"status"`
	SubmittedAt  *time.Time                `json:"submitted_at"`
	ReviewedBy   *string                   `json:"reviewed_by"`
	ReviewNotes  *string                   `json:"review_notes"`
	PublishedAt  *time.Time                `json:"published_at"`
	ScheduledAt  *time.Time                `json:"scheduled_at"`
	ArchivedAt   *time.Time                `json:"archived_at"`
	Translations []translation.Translation `json:"translations"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func newContentView(entity *content.Entity) contentView {
	translations := entity.Translations
	if translations == nil {
		translations = []translation.Translation{}
	}
	attributes := map[string]any(entity.Attributes)
	if attributes == nil {
		attributes = map[string]any{}
	}

	return contentView{
		ID:           entity.ID,
		Type:         entity.Type,
		ParentID:     entity.ParentID,
		Ordering:     entity.Ordering,
		AuthorID:     entity.AuthorID,
		Attributes:   attributes,
		Status:       entity.Current(),
		SubmittedAt:  entity.SubmittedAt,
		ReviewedBy:   entity.ReviewedBy,
		ReviewNotes:  entity.ReviewNotes,
		PublishedAt:  entity.PublishedAt,
		ScheduledAt:  entity.ScheduledAt,
		ArchivedAt:   entity.ArchivedAt,
		Translations: translations,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
}

func newContentViews(entities []content.Entity) []contentView {
	views := make([]contentView, 0, len(entities))
	for i := range entities {
		views = append(views, newContentView(&entities[i]))
	}
	return views
}

type revisionView struct {
	RevisionNumber int              `json:"revision_number"`
	Data           map[string]any   `json:"data"`
	Changes        revision.Changes `json:"changes"`
	IsAuto         bool             `json:"is_auto"`
	AuthorID       *string          `json:"author_id"`
	CreatedAt      time.Time        `json:"created_at"`
}

func newRevisionView(rev *revision.Revision) revisionView {
	changes := rev.Changes.Data()
	if changes == nil {
		changes = revision.Changes{}
	}
	return revisionView{
		RevisionNumber: rev.RevisionNumber,
		Data:           map[string]any(rev.Data),
		Changes:        changes,
		IsAuto:         rev.IsAuto,
		AuthorID:       rev.AuthorID,
		CreatedAt:      rev.CreatedAt,
	}
}

func newRevisionViews(revs []revision.Revision) []revisionView {
	views := make([]revisionView, 0, len(revs))
	for i := range revs {
		views = append(views, newRevisionView(&revs[i]))
	}
	return views
}

func newSiblingViews(positions []ordering.Position) []ordering.Position {
	if positions == nil {
		return []ordering.Position{}
	}
	return positions
}
