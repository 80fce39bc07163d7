package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/id"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/validation"
)

// Resolver is the part of resolver.Resolver the service depends on.
type Resolver interface {
	Resolve(ctx context.Context, q domain.RawCardQuery, breakdown string) domain.ResolutionResult
}

// IdentifyService orchestrates card identification.
type IdentifyService struct {
	resolver  Resolver
	logger    *slog.Logger
	validator *validation.Validator
	now       func() time.Time
}

// NewIdentifyService creates a new identify service.
func NewIdentifyService(resolver Resolver, log *slog.Logger) *IdentifyService {
	return &IdentifyService{
		resolver:  resolver,
		logger:    logger.OrNop(log),
		validator: validation.New(),
		now:       time.Now,
	}
}

// IdentifyRequest is a card description plus the optional OCR breakdown of
// its printed number.
type IdentifyRequest struct {
	Query     domain.RawCardQuery `json:"query"`
	Breakdown string              `json:"ocr_breakdown,omitempty" validate:"max=500"`
}

// Identification is a resolution with its request metadata. Resolution
// failures are reported here, not as errors.
type Identification struct {
	ID string `json:"id"`
	domain.ResolutionResult
	Patch      *domain.Patch `json:"patch,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

// Identify validates req and resolves it against the catalog.
func (s *IdentifyService) Identify(ctx context.Context, req IdentifyRequest) (*Identification, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	resolutionID, err := id.Generate(id.PrefixResolution)
	if err != nil {
		return nil, err
	}

	start := s.now()
	result := s.resolver.Resolve(ctx, req.Query, req.Breakdown)
	elapsed := s.now().Sub(start)

	attrs := []any{
		"id", resolutionID,
		"success", result.Success,
		"method", result.Method,
		"confidence", result.Confidence,
		"duration", elapsed,
	}
	if result.Success {
		s.logger.Info("card identified", append(attrs, "card_id", result.Card.ID)...)
	} else {
		s.logger.Info("card not identified", append(attrs, "reason", result.Error)...)
	}

	return &Identification{
		ID:               resolutionID,
		ResolutionResult: result,
		Patch:            result.Patch(),
		DurationMs:       elapsed.Milliseconds(),
	}, nil
}
