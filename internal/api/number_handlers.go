package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cardid/cardid-server/internal/service"
)

func (s *Server) registerNumberRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "classifyNumber",
		Method:      http.MethodGet,
		Path:        "/api/v1/numbers/classify",
		Summary:     "Classify printed number",
		Description: "Shows how a printed number is classified, normalized and expanded for lookup",
		Tags:        []string{"Numbers"},
	}, s.handleClassifyNumber)
}

// ClassifyInput contains the number to classify.
type ClassifyInput struct {
	Raw    string `query:"raw" required:"true" maxLength:"64" doc:"Printed number as read, e.g. 240/193"`
	Radius int    `query:"radius" minimum:"0" maximum:"10" doc:"Neighbour radius; 0 uses the configured default"`
}

// ClassifyOutput wraps the classification for Huma.
type ClassifyOutput struct {
	Body service.NumberClassification
}

func (s *Server) handleClassifyNumber(_ context.Context, input *ClassifyInput) (*ClassifyOutput, error) {
	return &ClassifyOutput{Body: s.services.Catalog.Classify(input.Raw, input.Radius)}, nil
}
