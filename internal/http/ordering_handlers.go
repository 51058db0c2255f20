package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"folio/app/internal/ordering"
)

type moveInput struct {
	ID   uint `path:"id" minimum:"1"`
	Body struct {
		Direction string `json:"direction,omitempty" enum:"up,down" doc:"Swap with the previous or next sibling"`
		Position  int    `json:"position,omitempty" minimum:"1" doc:"Move to this 1-based position"`
	}
}

type moveResponse struct {
	Body struct {
		Moved    bool                `json:"moved"`
		Siblings []ordering.Position `json:"siblings"`
	}
}

type siblingsResponse struct {
	Body struct {
		Items []ordering.Position `json:"items"`
	}
}

func (s *Server) registerOrderingRoutes() {
	huma.Post(s.api, "/contents/{id}/move", s.moveHandler, summary("Move content among its siblings"))
	huma.Get(s.api, "/contents/{id}/siblings", s.siblingsHandler, summary("List siblings in rank order"))
}

func (s *Server) moveHandler(ctx context.Context, input *moveInput) (*moveResponse, error) {
	var (
		moved bool
		err   error
	)
	switch {
	case input.Body.Direction != "" && input.Body.Position > 0:
		return nil, huma.Error422UnprocessableEntity("direction and position are mutually exclusive")
	case input.Body.Direction == "up":
		moved, err = s.content.MoveUp(ctx, input.ID)
	case input.Body.Direction == "down":
		moved, err = s.content.MoveDown(ctx, input.ID)
	case input.Body.Position > 0:
		var before []ordering.Position
		before, err = s.content.Siblings(ctx, input.ID)
		if err == nil {
			var applied int
			applied, err = s.content.MoveTo(ctx, input.ID, input.Body.Position)
			moved = err == nil && applied != positionOf(before, input.ID)
		}
	default:
		return nil, huma.Error422UnprocessableEntity("direction or position is required")
	}
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "moving content", logrus.Fields{"content_id": input.ID})
	}

	siblings, err := s.content.Siblings(ctx, input.ID)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing siblings", logrus.Fields{"content_id": input.ID})
	}

	resp := &moveResponse{}
	resp.Body.Moved = moved
	resp.Body.Siblings = newSiblingViews(siblings)
	return resp, nil
}

func (s *Server) siblingsHandler(ctx context.Context, input *idInput) (*siblingsResponse, error) {
	siblings, err := s.content.Siblings(ctx, input.ID)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "listing siblings", logrus.Fields{"content_id": input.ID})
	}

	resp := &siblingsResponse{}
	resp.Body.Items = newSiblingViews(siblings)
	return resp, nil
}

func positionOf(siblings []ordering.Position, id uint) int {
	for i, sibling := range siblings {
		if sibling.ID == id {
			return i + 1
		}
	}
	return 0
}
