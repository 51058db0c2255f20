package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"folio/app/internal/revision"
)

type revisionListResponse struct {
	Body struct {
		Items []revisionView `json:"items"`
	}
}

type restoreInput struct {
	ID     uint `path:"id" minimum:"1"`
	Number int  `path:"number" minimum:"1"`
}

type restoreResponse struct {
	Body struct {
		Content  contentView  `json:"content"`
		Snapshot revisionView `json:"snapshot" doc:"Revision recording the state before the restore"`
	}
}

type compareInput struct {
	ID   uint `path:"id" minimum:"1"`
	From int  `query:"from" minimum:"1" required:"true"`
	To   int  `query:"to" minimum:"1" required:"true"`
}

type compareResponse struct {
	Body struct {
		From    int                 `json:"from"`
		To      int                 `json:"to"`
		Changes revision.Comparison `json:"changes"`
	}
}

type pruneInput struct {
	ID   uint `path:"id" minimum:"1"`
	Body struct {
		Keep int `json:"keep" minimum:"0" doc:"Number of newest revisions to keep"`
	}
}

type pruneResponse struct {
	Body struct {
		Removed int64 `json:"removed"`
	}
}

func (s *Server) registerRevisionRoutes() {
	huma.Get(s.api, "/contents/{id}/revisions", s.listRevisionsHandler, summary("List revisions, newest first"))
	huma.Get(s.api, "/contents/{id}/revisions/compare", s.compareRevisionsHandler, summary("Compare two revisions"))
	huma.Post(s.api, "/contents/{id}/revisions/{number}/restore", s.restoreRevisionHandler, summary("Restore a revision"))
	huma.Post(s.api, "/contents/{id}/revisions/prune", s.pruneRevisionsHandler, summary("Prune old revisions"))
}

func (s *Server) listRevisionsHandler(ctx context.Context, input *idInput) (*revisionListResponse, error) {
	revs, err := s.content.Revisions(ctx, input.ID)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing revisions", logrus.Fields{"content_id": input.ID})
	}

	resp := &revisionListResponse{}
	resp.Body.Items = newRevisionViews(revs)
	return resp, nil
}

func (s *Server) compareRevisionsHandler(ctx context.Context, input *compareInput) (*compareResponse, error) {
	comparison, err := s.content.CompareRevisions(ctx, input.ID, input.From, input.To)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "comparing revisions", logrus.Fields{"content_id": input.ID})
	}

	resp := &compareResponse{}
	resp.Body.From = input.From
	resp.Body.To = input.To
	resp.Body.Changes = comparison
	if resp.Body.Changes == nil {
		resp.Body.Changes = revision.Comparison{}
	}
	return resp, nil
}

func (s *Server) restoreRevisionHandler(ctx context.Context, input *restoreInput) (*restoreResponse, error) {
	entity, snapshot, err := s.content.RestoreRevision(ctx, input.ID, ActorFromContext(ctx), input.Number)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "restoring revision", logrus.Fields{"content_id": input.ID, "revision": input.Number})
	}

	resp := &restoreResponse{}
	resp.Body.Content = newContentView(entity)
	resp.Body.Snapshot = newRevisionView(snapshot)
	return resp, nil
}

func (s *Server) pruneRevisionsHandler(ctx context.Context, input *pruneInput) (*pruneResponse, error) {
	removed, err := s.content.PruneRevisions(ctx, input.ID, input.Body.Keep)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "pruning revisions", logrus.Fields{"content_id": input.ID})
	}

	resp := &pruneResponse{}
	resp.Body.Removed = removed
	return resp, nil
}
