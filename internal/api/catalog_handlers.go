package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cardid/cardid-server/internal/domain"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogCard",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/cards/{id}",
		Summary:     "Get card",
		Description: "Returns a card from the local catalog",
		Tags:        []string{"Catalog"},
	}, s.handleGetCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCatalogSets",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/sets",
		Summary:     "List sets",
		Description: "Returns every set in the local catalog, oldest first",
		Tags:        []string{"Catalog"},
	}, s.handleListSets)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogSet",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/sets/{id}",
		Summary:     "Get set",
		Description: "Returns set metadata from the local catalog, falling back to the remote service",
		Tags:        []string{"Catalog"},
	}, s.handleGetSet)
}

// CatalogIDInput identifies a catalog record.
type CatalogIDInput struct {
	ID string `path:"id" maxLength:"64" doc:"Catalog id, e.g. base1-4"`
}

// CardOutput wraps a catalog card for Huma.
type CardOutput struct {
	Body *domain.ReferenceCard
}

// SetOutput wraps a catalog set for Huma.
type SetOutput struct {
	Body *domain.CardSet
}

// SetsOutput wraps the set list for Huma.
type SetsOutput struct {
	Body []domain.CardSet
}

func (s *Server) handleGetCard(ctx context.Context, input *CatalogIDInput) (*CardOutput, error) {
	card, err := s.services.Catalog.GetCard(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CardOutput{Body: card}, nil
}

func (s *Server) handleListSets(ctx context.Context, _ *struct{}) (*SetsOutput, error) {
	sets, err := s.services.Catalog.ListSets(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	if sets == nil {
		sets = []domain.CardSet{}
	}
	return &SetsOutput{Body: sets}, nil
}

func (s *Server) handleGetSet(ctx context.Context, input *CatalogIDInput) (*SetOutput, error) {
	set, err := s.services.Catalog.GetSet(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SetOutput{Body: set}, nil
}
