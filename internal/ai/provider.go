package ai

import (
	"context"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Request is a single synchronous completion call.
type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Completion is a provider's answer.
type Completion struct {
	Content    string
	TokensUsed int
	Model      string
}

// Provider is an upstream LLM.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Models is the pair of model names a provider serves.
type Models struct {
	Standard string
	Premium  string
}

// DefaultModels returns the built-in tiers per provider.
func DefaultModels(provider string) Models {
	switch provider {
	case ProviderGemini:
		return Models{Standard: "gemini-1.5-flash", Premium: "gemini-1.5-pro"}
	case ProviderMock:
		return Models{Standard: "mock-standard", Premium: "mock-premium"}
	default:
		return Models{Standard: "gpt-4o-mini", Premium: "gpt-4o"}
	}
}

// WithOverrides replaces empty tiers' defaults with configured names.
func (m Models) WithOverrides(standard, premium string) Models {
	if standard != "" {
		m.Standard = standard
	}
	if premium != "" {
		m.Premium = premium
	}
	return m
}

// Select picks the tier: only pro users asking for the premium model get it.
func (m Models) Select(plan enums.PlanID, preferPremium bool) string {
	if plan == enums.PlanIDPro && preferPremium {
		return m.Premium
	}
	return m.Standard
}
