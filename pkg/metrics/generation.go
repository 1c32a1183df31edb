package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Generation outcomes.
const (
	OutcomeGenerated = "generated"
	OutcomeDeduped   = "deduped"
	OutcomeFailed    = "failed"
	OutcomeDenied    = "quota_denied"
)

// GenerationMetrics counts AI generations, token spend and quota denials.
type GenerationMetrics struct {
	outcomes *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	denials  *prometheus.CounterVec
}

func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ai_generations_total",
		Help:      "AI generation requests by type and outcome.",
	}, []string{"type", "outcome"})
	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ai_tokens_total",
		Help:      "Tokens consumed by upstream AI providers.",
	}, []string{"provider", "model"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "quota_denials_total",
		Help:      "Requests rejected because the monthly quota was exhausted.",
	}, []string{"quota", "plan"})
	reg.MustRegister(outcomes, tokens, denials)
	return &GenerationMetrics{outcomes: outcomes, tokens: tokens, denials: denials}
}

// IncOutcome counts one generation request with the given outcome.
func (g *GenerationMetrics) IncOutcome(genType, outcome string) {
	if g == nil || g.outcomes == nil {
		return
	}
	g.outcomes.WithLabelValues(normalizeLabel(genType), normalizeLabel(outcome)).Inc()
}

// AddTokens adds provider token usage. Non-positive counts are ignored.
func (g *GenerationMetrics) AddTokens(provider, model string, tokens int) {
	if g == nil || g.tokens == nil || tokens <= 0 {
		return
	}
	g.tokens.WithLabelValues(normalizeLabel(provider), normalizeLabel(model)).Add(float64(tokens))
}

// IncDenied counts a quota rejection.
func (g *GenerationMetrics) IncDenied(quota, plan string) {
	if g == nil || g.denials == nil {
		return
	}
	g.denials.WithLabelValues(normalizeLabel(quota), normalizeLabel(plan)).Inc()
}
