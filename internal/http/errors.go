package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"folio/app/internal/content"
	"folio/app/internal/ordering"
	"folio/app/internal/revision"
	"folio/app/internal/slug"
	"folio/app/internal/translation"
	"folio/app/internal/workflow"
)

const errorFallbackMessage = "We couldn't process your request right now."

var (
	notFoundErrors = []error{
		content.ErrContentNotFound,
		revision.ErrRevisionNotFound,
		ordering.ErrRowNotFound,
	}
	conflictErrors = []error{
		workflow.ErrIllegalTransition,
		content.ErrHasChildren,
	}
	invalidErrors = []error{
		content.ErrInvalidInput,
		content.ErrUnknownType,
		content.ErrParentNotFound,
		content.ErrInvalidParent,
		workflow.ErrScheduleInPast,
		workflow.ErrUnknownAction,
		translation.ErrUnknownAttribute,
		slug.ErrEmpty,
	}
)

// toHTTPError maps domain errors onto Huma status errors. Unexpected errors are logged,
// reported and hidden behind a generic 500.
func (s *Server) toHTTPError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	if err == nil {
		return nil
	}

	cause := eris.Cause(err).Error()
	switch {
	case isAny(err, notFoundErrors):
		return huma.Error404NotFound(cause)
	case isAny(err, conflictErrors):
		return huma.Error409Conflict(cause)
	case isAny(err, invalidErrors):
		return huma.Error422UnprocessableEntity(cause)
	case eris.Is(err, context.Canceled):
		return huma.NewError(499, "request canceled")
	}

	s.recordError(ctx, err, message, fields)
	return huma.Error500InternalServerError(errorFallbackMessage)
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if eris.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	entry := s.log(ctx, logrus.Fields{"error": err.Error()})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
