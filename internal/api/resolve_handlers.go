package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cardid/cardid-server/internal/service"
)

func (s *Server) registerResolveRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "resolveCard",
		Method:      http.MethodPost,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve card",
		Description: "Resolves a card description read from a photo to at most one catalog card. " +
			"An unresolved card is a successful response with success=false and a reason.",
		Tags: []string{"Resolve"},
	}, s.handleResolve)
}

// ResolveInput wraps the resolution request for Huma.
type ResolveInput struct {
	Body service.IdentifyRequest
}

// ResolveOutput wraps the identification for Huma.
type ResolveOutput struct {
	Body *service.Identification
}

func (s *Server) handleResolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	out, err := s.services.Identify.Identify(ctx, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ResolveOutput{Body: out}, nil
}
