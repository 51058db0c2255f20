package http

import (
	"context"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"folio/app/internal/translation"
)

type localeInput struct {
	ID     uint   `path:"id" minimum:"1"`
	Locale string `path:"locale" maxLength:"16"`
}

type setTranslationInput struct {
	ID     uint   `path:"id" minimum:"1"`
	Locale string `path:"locale" maxLength:"16"`
	Body   translation.Fields
}

type translationResponse struct {
	Body translation.Translation
}

type translateInput struct {
	ID        uint   `path:"id" minimum:"1"`
	Locale    string `path:"locale" maxLength:"16"`
	Attribute string `path:"attribute" enum:"title,slug,excerpt,body,meta_title,meta_description"`
	Fallback  bool   `query:"fallback" default:"true" doc:"Fall back to the fallback locale when missing"`
}

type translateResponse struct {
	Body struct {
		Locale    string  `json:"locale"`
		Attribute string  `json:"attribute"`
		Value     *string `json:"value"`
	}
}

func (s *Server) registerTranslationRoutes() {
	huma.Put(s.api, "/contents/{id}/translations/{locale}", s.setTranslationHandler, summary("Create or update a translation"))
	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-translation",
		Method:        stdhttp.MethodDelete,
		Path:          "/contents/{id}/translations/{locale}",
		Summary:       "Delete a translation",
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.deleteTranslationHandler)
	huma.Get(s.api, "/contents/{id}/translations/{locale}/{attribute}", s.translateHandler, summary("Resolve a translated attribute"))
}

func (s *Server) setTranslationHandler(ctx context.Context, input *setTranslationInput) (*translationResponse, error) {
	if input.Body.Empty() {
		return nil, huma.Error422UnprocessableEntity("at least one translation attribute is required")
	}

	saved, err := s.content.SetTranslation(ctx, input.ID, ActorFromContext(ctx), input.Locale, input.Body)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "saving translation", logrus.Fields{"content_id": input.ID, "locale": input.Locale})
	}
	return &translationResponse{Body: *saved}, nil
}

func (s *Server) deleteTranslationHandler(ctx context.Context, input *localeInput) (*struct{}, error) {
	if err := s.content.DeleteTranslation(ctx, input.ID, ActorFromContext(ctx), input.Locale); err != nil {
		return nil, s.toHTTPError(ctx, err, "deleting translation", logrus.Fields{"content_id": input.ID, "locale": input.Locale})
	}
	return nil, nil
}

func (s *Server) translateHandler(ctx context.Context, input *translateInput) (*translateResponse, error) {
	attr, err := translation.ParseAttribute(input.Attribute)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "parsing attribute", nil)
	}

	value, err := s.content.Translate(ctx, input.ID, attr, input.Locale, input.Fallback)
	if err != nil {
		return nil, s.toHTTPError(ctx, err, "translating attribute", logrus.Fields{"content_id": input.ID, "locale": input.Locale})
	}

	resp := &translateResponse{}
	resp.Body.Locale = translation.NormalizeLocale(input.Locale)
	resp.Body.Attribute = string(attr)
	resp.Body.Value = value
	return resp, nil
}
