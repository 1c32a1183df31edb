// Package generation runs a generate request end to end: quota check, dedupe
// lookup, reservation, provider call and token accounting.
package generation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/internal/ai"
	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

// Gate is the slice of the quota gate the orchestrator needs.
type Gate interface {
	EffectivePlan(ctx context.Context, userID uuid.UUID) (enums.PlanID, error)
	Check(ctx context.Context, userID uuid.UUID, quota enums.QuotaType) error
	Increment(ctx context.Context, userID uuid.UUID, quota enums.QuotaType) (*models.UsageStat, error)
	Release(ctx context.Context, userID uuid.UUID, quota enums.QuotaType) error
	RecordTokens(ctx context.Context, userID uuid.UUID, tokens int) error
}

// Generator is the AI content proxy.
type Generator interface {
	Generate(ctx context.Context, in ai.GenerateInput) (*ai.Result, error)
}

// Request is the decoded generate call. Plan is what the client believes its
// plan is; it is only logged.
type Request struct {
	Type        string         `json:"type" validate:"required,oneof=proposal followup"`
	FormInputs  map[string]any `json:"formInputs" validate:"required"`
	Plan        string         `json:"plan"`
	UserID      string         `json:"user_id" validate:"required,uuid"`
	PreferGPT4o bool           `json:"prefer_gpt4o"`
}

type Service struct {
	gate      Gate
	generator Generator
	logg      *logger.Logger
}

func NewService(gate Gate, generator Generator, logg *logger.Logger) (*Service, error) {
	if gate == nil {
		return nil, fmt.Errorf("quota gate required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{gate: gate, generator: generator, logg: logg}, nil
}

// Generate serves one request for userID. A deduped replay still needs the
// gate to permit but consumes nothing.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req Request) (*ai.Result, error) {
	genType, err := enums.ParseGenerationType(req.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid generation type").
			WithDetails(map[string]string{"type": "must be proposal or followup"})
	}
	form, problems := ai.NormalizeFormInputs(req.FormInputs)
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid form inputs").WithDetails(problems)
	}
	quota := genType.QuotaType()

	if err := s.gate.Check(ctx, userID, quota); err != nil {
		return nil, err
	}
	plan, err := s.gate.EffectivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Plan != "" && req.Plan != plan.String() {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id":      userID.String(),
			"claimed_plan": req.Plan,
			"plan":         plan.String(),
		}), "client plan differs from effective plan")
	}

	result, err := s.generator.Generate(ctx, ai.GenerateInput{
		Type:        genType,
		FormInputs:  form,
		Plan:        plan,
		UserID:      userID,
		PreferGPT4o: req.PreferGPT4o,
		Reserve: func(ctx context.Context) (func(context.Context), error) {
			if _, err := s.gate.Increment(ctx, userID, quota); err != nil {
				return nil, err
			}
			return func(ctx context.Context) {
				if err := s.gate.Release(ctx, userID, quota); err != nil {
					s.logg.Error(ctx, "release reserved quota failed", err)
				}
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	if !result.Deduped && result.TokensUsed > 0 {
		if err := s.gate.RecordTokens(ctx, userID, result.TokensUsed); err != nil {
			s.logg.Error(ctx, "record token usage failed", err)
		}
	}
	return result, nil
}
