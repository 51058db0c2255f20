package http

import (
	"context"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"folio/app/internal/content"
	"folio/app/internal/db"
	"folio/app/internal/translation"
	"folio/app/internal/workflow"
)

const defaultListLimit = 50

var discardLogger = func() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}()

type idInput struct {
	ID uint `path:"id" minimum:"1" doc:"Content id"`
}

type contentResponse struct {
	Body contentView
}

type contentListResponse struct {
	Body struct {
		Items []contentView `json:"items"`
	}
}

type createContentInput struct {
	Body struct {
		Type         string                        `json:"type" enum:"article,page,product,service,event,plan"`
		ParentID     *uint                         `json:"parent_id,omitempty"`
		Position     int                           `json:"position,omitempty" minimum:"0" doc:"1-based sibling position, 0 appends"`
		Attributes   map[string]any                `json:"attributes,omitempty"`
		Translations map[string]translation.Fields `json:"translations,omitempty" doc:"Translations keyed by locale"`
	}
}

type listContentInput struct {
	Type     string `query:"type"`
	Status   string `query:"status"`
	ParentID uint   `query:"parent_id" doc:"Only children of this parent"`
	Roots    bool   `query:"roots" doc:"Only entities without a parent"`
	Limit    int    `query:"limit" minimum:"0" maximum:"500"`
	Offset   int    `query:"offset" minimum:"0"`
}

type slugInput struct {
	Type   string `path:"type"`
	Locale string `path:"locale"`
	Slug   string `path:"slug"`
}

type updateContentInput struct {
	ID   uint `path:"id" minimum:"1"`
	Body struct {
		ParentID     *uint          `json:"parent_id,omitempty"`
		DetachParent bool           `json:"detach_parent,omitempty"`
		Attributes   map[string]any `json:"attributes,omitempty"`
	}
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerContentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-content",
		Method:        stdhttp.MethodPost,
		Path:          "/contents",
		Summary:       "Create content",
		DefaultStatus: stdhttp.StatusCreated,
	}, s.createContentHandler)
	huma.Get(s.api, "/contents", s.listContentHandler, summary("List contents"))
	huma.Get(s.api, "/contents/{id}", s.getContentHandler, summary("Fetch content"))
	huma.Get(s.api, "/slugs/{type}/{locale}/{slug}", s.getContentBySlugHandler, summary("Fetch content by slug"))
	huma.Patch(s.api, "/contents/{id}", s.updateContentHandler, summary("Update content"))
	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-content",
		Method:        stdhttp.MethodDelete,
		Path:          "/contents/{id}",
		Summary:       "Delete content",
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.deleteContentHandler)
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, summary("Health check"))
}

func (s *Server) createContentHandler(ctx context.Context, input *createContentInput) (*contentResponse, error) {
	entity, err := s.content.Create(ctx, ActorFromContext(ctx), content.CreateInput{
		Type:         content.Type(input.Body.Type),
		ParentID:     input.Body.ParentID,
		Position:     input.Body.Position,
		Attributes:   input.Body.Attributes,
		Translations: input.Body.Translations,
	})
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "creating content", logrus.Fields{"type": input.Body.Type})
	}
	return &contentResponse{Body: newContentView(entity)}, nil
}

func (s *Server) listContentHandler(ctx context.Context, input *listContentInput) (*contentListResponse, error) {
	filter := content.Filter{
		Type:      content.Type(strings.TrimSpace(input.Type)),
		RootsOnly: input.Roots,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if input.Status != "" {
		status, err := workflow.ParseStatus(input.Status)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		filter.Status = status
	}
	if input.ParentID > 0 {
		parentID := input.ParentID
		filter.ParentID = &parentID
	}

	entities, err := s.content.List(ctx, filter)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing contents", nil)
	}

	resp := &contentListResponse{}
	resp.Body.Items = newContentViews(entities)
	return resp, nil
}

func (s *Server) getContentHandler(ctx context.Context, input *idInput) (*contentResponse, error) {
	entity, err := s.content.Get(ctx, input.ID)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "loading content", logrus.Fields{"content_id": input.ID})
	}
	return &contentResponse{Body: newContentView(entity)}, nil
}

func (s *Server) getContentBySlugHandler(ctx context.Context, input *slugInput) (*contentResponse, error) {
	entity, err := s.content.GetBySlug(ctx, content.Type(input.Type), input.Locale, input.Slug)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "resolving content slug", logrus.Fields{"slug": input.Slug})
	}
	return &contentResponse{Body: newContentView(entity)}, nil
}

func (s *Server) updateContentHandler(ctx context.Context, input *updateContentInput) (*contentResponse, error) {
	entity, err := s.content.Update(ctx, input.ID, ActorFromContext(ctx), content.UpdateInput{
		ParentID:     input.Body.ParentID,
		DetachParent: input.Body.DetachParent,
		Attributes:   input.Body.Attributes,
	})
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "updating content", logrus.Fields{"content_id": input.ID})
	}
	return &contentResponse{Body: newContentView(entity)}, nil
}

func (s *Server) deleteContentHandler(ctx context.Context, input *idInput) (*struct{}, error) {
	if err := s.content.Delete(ctx, input.ID); err != nil {
		return nil, s.toHTTPError(ctx, err, "deleting content", logrus.Fields{"content_id": input.ID})
	}
	return nil, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func summary(text string) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.Summary = text
	}
}
