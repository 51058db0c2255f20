package http

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"folio/app/internal/content"
	"folio/app/internal/workflow"
)

type transitionInput struct {
	ID     uint   `path:"id" minimum:"1"`
	Action string `path:"action" enum:"submit,start_review,approve,reject,publish,schedule,cancel_schedule,unpublish,archive,unarchive"`
	Body   *struct {
		Notes string     `json:"notes,omitempty" doc:"Review notes for approve and reject"`
		At    *time.Time `json:"at,omitempty" doc:"Publication date for schedule"`
	} `required:"false"`
}

type publishDueResponse struct {
	Body struct {
		Published []uint `json:"published"`
	}
}

func (s *Server) registerWorkflowRoutes() {
	huma.Post(s.api, "/contents/{id}/workflow/{action}", s.transitionHandler, summary("Apply a workflow action"))
	huma.Post(s.api, "/workflow/publish-due", s.publishDueHandler, summary("Publish scheduled content whose date has passed"))
}

func (s *Server) transitionHandler(ctx context.Context, input *transitionInput) (*contentResponse, error) {
	var args content.TransitionInput
	if input.Body != nil {
		args.Notes = input.Body.Notes
		args.At = input.Body.At
	}

	entity, err := s.content.Transition(ctx, input.ID, ActorFromContext(ctx), workflow.Action(input.Action), args)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "applying workflow action", logrus.Fields{"content_id": input.ID, "action": input.Action})
	}
	return &contentResponse{Body: newContentView(entity)}, nil
}

func (s *Server) publishDueHandler(ctx context.Context, _ *struct{}) (*publishDueResponse, error) {
	actor := ActorFromContext(ctx)
	published, err := s.content.PublishDue(ctx, actor)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "publishing due content", nil)
	}

	resp := &publishDueResponse{}
	resp.Body.Published = published
	if resp.Body.Published == nil {
		resp.Body.Published = []uint{}
	}
	return resp, nil
}
