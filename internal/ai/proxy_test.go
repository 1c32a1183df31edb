package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/gigdesk-backend/pkg/db/models"
	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/metrics"
)

type outcomeRecorder struct {
	outcomes []string
	tokens   int
}

func (r *outcomeRecorder) IncOutcome(_, outcome string) { r.outcomes = append(r.outcomes, outcome) }

func (r *outcomeRecorder) AddTokens(_, _ string, tokens int) { r.tokens += tokens }

type reserveCounter struct {
	reserved int
	released int
	err      error
}

func (c *reserveCounter) reserve(context.Context) (func(context.Context), error) {
	if c.err != nil {
		return nil, c.err
	}
	c.reserved++
	return func(context.Context) { c.released++ }, nil
}

func newTestProxy(t *testing.T) (*Proxy, *MockProvider, *outcomeRecorder, Store) {
	t.Helper()
	dsn := "file:ai_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.AIGeneration{}))

	provider := NewMockProvider()
	rec := &outcomeRecorder{}
	store := NewStore(conn)
	proxy, err := NewProxy(ProxyParams{Provider: provider, Store: store, Models: DefaultModels(ProviderOpenAI), Metrics: rec, MaxTokens: 500})
	require.NoError(t, err)
	return proxy, provider, rec, store
}

func proposalForm() map[string]string {
	return map[string]string{
		"client_name":         "Acme",
		"project_title":       "Brand refresh",
		"project_description": "New logo and style guide",
		"budget":              "50000",
	}
}

func TestGenerateDedupesRepeatedRequests(t *testing.T) {
	proxy, provider, rec, _ := newTestProxy(t)
	ctx := context.Background()
	counter := &reserveCounter{}
	in := GenerateInput{
		Type:       enums.GenerationTypeProposal,
		FormInputs: proposalForm(),
		Plan:       enums.PlanIDBasic,
		UserID:     uuid.New(),
		Reserve:    counter.reserve,
	}

	first, err := proxy.Generate(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Deduped)
	assert.Equal(t, "gpt-4o-mini", first.Model)

	second, err := proxy.Generate(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Deduped)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.TokensUsed, second.TokensUsed)

	assert.Len(t, provider.Calls(), 1)
	assert.Equal(t, 1, counter.reserved, "replays do not reserve quota")
	assert.Equal(t, []string{metrics.OutcomeGenerated, metrics.OutcomeDeduped}, rec.outcomes)
	assert.Equal(t, first.TokensUsed, rec.tokens)
}

func TestGenerateDedupeIsPerUserAndPlan(t *testing.T) {
	proxy, provider, _, _ := newTestProxy(t)
	ctx := context.Background()
	in := GenerateInput{Type: enums.GenerationTypeProposal, FormInputs: proposalForm(), Plan: enums.PlanIDBasic, UserID: uuid.New()}

	_, err := proxy.Generate(ctx, in)
	require.NoError(t, err)

	other := in
	other.UserID = uuid.New()
	res, err := proxy.Generate(ctx, other)
	require.NoError(t, err)
	assert.False(t, res.Deduped)

	upgraded := in
	upgraded.Plan = enums.PlanIDPro
	res, err = proxy.Generate(ctx, upgraded)
	require.NoError(t, err)
	assert.False(t, res.Deduped)

	assert.Len(t, provider.Calls(), 3)
}

func TestGenerateSelectsPremiumOnlyForPro(t *testing.T) {
	proxy, provider, _, _ := newTestProxy(t)
	ctx := context.Background()

	basic := GenerateInput{Type: enums.GenerationTypeProposal, FormInputs: proposalForm(), Plan: enums.PlanIDBasic, UserID: uuid.New(), PreferGPT4o: true}
	res, err := proxy.Generate(ctx, basic)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", res.Model)

	pro := basic
	pro.Plan = enums.PlanIDPro
	res, err = proxy.Generate(ctx, pro)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", res.Model)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 500, calls[1].MaxTokens)
}

func TestGenerateReleasesReservationOnUpstreamFailure(t *testing.T) {
	proxy, provider, rec, store := newTestProxy(t)
	provider.Err = errors.New("upstream 500: overloaded")
	counter := &reserveCounter{}
	in := GenerateInput{Type: enums.GenerationTypeFollowup, FormInputs: map[string]string{
		"client_name":      "Acme",
		"previous_message": "Sent the proposal last week",
	}, Plan: enums.PlanIDStarter, UserID: uuid.New(), Reserve: counter.reserve}

	_, err := proxy.Generate(context.Background(), in)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGeneration))
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, 1, counter.reserved)
	assert.Equal(t, 1, counter.released)
	assert.Equal(t, []string{metrics.OutcomeFailed}, rec.outcomes)

	prompts, err := BuildPrompts(in.Type, in.FormInputs)
	require.NoError(t, err)
	hash, err := InputHash(in.Type, in.Plan, in.FormInputs, prompts)
	require.NoError(t, err)
	stored, err := store.Find(context.Background(), in.UserID, in.Type, hash)
	require.NoError(t, err)
	assert.Nil(t, stored, "failures are not logged as generations")
}

func TestGenerateStopsWhenReservationDenied(t *testing.T) {
	proxy, provider, _, _ := newTestProxy(t)
	denied := pkgerrors.New(pkgerrors.CodeQuotaExceeded, "monthly proposal limit reached")
	counter := &reserveCounter{err: denied}

	_, err := proxy.Generate(context.Background(), GenerateInput{
		Type: enums.GenerationTypeProposal, FormInputs: proposalForm(), Plan: enums.PlanIDStarter, UserID: uuid.New(), Reserve: counter.reserve,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuotaExceeded))
	assert.Empty(t, provider.Calls())
}

func TestGenerateValidatesRequiredFields(t *testing.T) {
	proxy, provider, _, _ := newTestProxy(t)

	_, err := proxy.Generate(context.Background(), GenerateInput{
		Type: enums.GenerationTypeProposal, FormInputs: map[string]string{"client_name": "Acme"}, Plan: enums.PlanIDStarter, UserID: uuid.New(),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "project_title")
	assert.Contains(t, details, "project_description")

	_, err = proxy.Generate(context.Background(), GenerateInput{Type: "poem", UserID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, provider.Calls())
}

func TestStoreSaveReturnsExistingOnDuplicate(t *testing.T) {
	_, _, _, store := newTestProxy(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := store.Save(ctx, &models.AIGeneration{UserID: userID, Type: enums.GenerationTypeProposal, InputHash: "abc", Plan: enums.PlanIDBasic, Model: "m", Content: "first"})
	require.NoError(t, err)

	second, err := store.Save(ctx, &models.AIGeneration{UserID: userID, Type: enums.GenerationTypeProposal, InputHash: "abc", Plan: enums.PlanIDBasic, Model: "m", Content: "second"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "first", second.Content)
}
