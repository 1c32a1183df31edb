// Package ai proxies content generation to an upstream LLM with a permanent
// per-user dedupe log.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
	"github.com/angelmondragon/gigdesk-backend/pkg/metrics"
)

// ReserveFunc claims quota before a provider call. The returned release undoes
// the claim when the call fails.
type ReserveFunc func(ctx context.Context) (release func(context.Context), err error)

// GenerateInput is one generation request. Plan must be the server-side
// effective plan.
type GenerateInput struct {
	Type        enums.GenerationType
	FormInputs  map[string]string
	Plan        enums.PlanID
	UserID      uuid.UUID
	PreferGPT4o bool
	Reserve     ReserveFunc
}

// Result is the generated (or replayed) content.
type Result struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model"`
	Deduped    bool   `json:"deduped"`
}

// Metrics receives generation outcomes.
type Metrics interface {
	IncOutcome(genType, outcome string)
	AddTokens(provider, model string, tokens int)
}

type ProxyParams struct {
	Provider    Provider
	Store       Store
	Models      Models
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      *logger.Logger
	Metrics     Metrics
}

type Proxy struct {
	provider    Provider
	store       Store
	models      Models
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logg        *logger.Logger
	metrics     Metrics
}

func NewProxy(params ProxyParams) (*Proxy, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("ai provider required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("generation store required")
	}
	p := &Proxy{
		provider:    params.Provider,
		store:       params.Store,
		models:      params.Models,
		maxTokens:   params.MaxTokens,
		temperature: params.Temperature,
		timeout:     params.Timeout,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}
	if p.models.Standard == "" || p.models.Premium == "" {
		p.models = DefaultModels(p.provider.Name()).WithOverrides(p.models.Standard, p.models.Premium)
	}
	if p.logg == nil {
		p.logg = logger.Nop()
	}
	return p, nil
}

// Generate returns stored content for a repeated request, otherwise calls the
// provider once and logs the result. Upstream failures are not retried.
func (p *Proxy) Generate(ctx context.Context, in GenerateInput) (*Result, error) {
	if !in.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid generation type").
			WithDetails(map[string]string{"type": "must be proposal or followup"})
	}
	if problems := ValidateFormInputs(in.Type, in.FormInputs); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid form inputs").WithDetails(problems)
	}

	prompts, err := BuildPrompts(in.Type, in.FormInputs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := InputHash(in.Type, in.Plan, in.FormInputs, prompts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash generation input")
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"user_id":    in.UserID.String(),
		"type":       in.Type.String(),
		"input_hash": hash,
	})

	cached, err := p.store.Find(ctx, in.UserID, in.Type, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup generation")
	}
	if cached != nil {
		p.outcome(in.Type, metrics.OutcomeDeduped)
		p.logg.Info(ctx, "generation deduped")
		return &Result{Content: cached.Content, TokensUsed: cached.TokensUsed, Model: cached.Model, Deduped: true}, nil
	}

	var release func(context.Context)
	if in.Reserve != nil {
		release, err = in.Reserve(ctx)
		if err != nil {
			return nil, err
		}
	}

	model := p.models.Select(in.Plan, in.PreferGPT4o)
	completion, err := p.complete(ctx, Request{
		Model:       model,
		System:      prompts.System,
		User:        prompts.User,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		if release != nil {
			release(context.WithoutCancel(ctx))
		}
		p.outcome(in.Type, metrics.OutcomeFailed)
		p.logg.Error(ctx, "upstream generation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGeneration, err, fmt.Sprintf("%s generation failed: %v", p.provider.Name(), err))
	}
	if completion.Model == "" {
		completion.Model = model
	}

	formJSON, err := json.Marshal(in.FormInputs)
	if err != nil {
		formJSON = []byte("{}")
	}
	stored, err := p.store.Save(ctx, &models.AIGeneration{
		UserID:     in.UserID,
		Type:       in.Type,
		InputHash:  hash,
		Plan:       in.Plan,
		Model:      completion.Model,
		FormInputs: formJSON,
		Content:    completion.Content,
		TokensUsed: completion.TokensUsed,
	})
	if err != nil {
		// The unit is spent and the content is delivered; only the log entry is lost.
		p.logg.Error(ctx, "persist generation failed", err)
	} else if stored.Content != completion.Content {
		p.logg.Warn(ctx, "concurrent duplicate generation, returning stored content")
		completion.Content = stored.Content
	}

	p.outcome(in.Type, metrics.OutcomeGenerated)
	if p.metrics != nil {
		p.metrics.AddTokens(p.provider.Name(), completion.Model, completion.TokensUsed)
	}
	return &Result{Content: completion.Content, TokensUsed: completion.TokensUsed, Model: completion.Model}, nil
}

func (p *Proxy) complete(ctx context.Context, req Request) (*Completion, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	completion, err := p.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if completion == nil || completion.Content == "" {
		return nil, fmt.Errorf("empty completion")
	}
	return completion, nil
}

func (p *Proxy) outcome(genType enums.GenerationType, outcome string) {
	if p.metrics != nil {
		p.metrics.IncOutcome(genType.String(), outcome)
	}
}
