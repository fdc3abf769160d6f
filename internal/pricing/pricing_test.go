package pricing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"farmlink/internal/llm"
	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProvider is a mock implementation of llm.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

const answer = "```json\n" + `{
  "priceHistory": [{"month": "Jan", "tomatoes": 30, "rice": 42}],
  "predictions": [
    {"product": "Tomatoes", "currentPrice": 32, "predictedPrice": 35, "trend": "up", "confidence": 0.8, "reason": "wedding season"},
    {"product": "Rice", "currentPrice": 45, "predictedPrice": 44, "trend": "down", "confidence": 0.6, "reason": "good harvest"}
  ],
  "marketInsights": ["Vegetable prices are firm", "Rabi arrivals start next month"]
}` + "\n```"

func TestNormalize(t *testing.T) {
	req := Normalize(models.PricingRequest{})
	assert.Equal(t, DefaultCrops, req.Crops)
	assert.Equal(t, "India", req.Region)

	req = Normalize(models.PricingRequest{Crops: []string{" Onions ", ""}, Region: "Punjab"})
	assert.Equal(t, []string{"Onions"}, req.Crops)
	assert.Equal(t, "Punjab", req.Region)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt([]string{"Tomatoes", "Rice"}, "India", time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))
	assert.Contains(t, prompt, "in India as of 2026-02-10")
	assert.Contains(t, prompt, "For each crop: Tomatoes, Rice")
	assert.Contains(t, prompt, `"tomatoes": <price_inr_per_kg>, "rice": <price_inr_per_kg>`)
	assert.Contains(t, prompt, `"marketInsights"`)
}

func TestExtractReport(t *testing.T) {
	report, err := ExtractReport(answer)
	require.NoError(t, err)
	require.Len(t, report.Predictions, 2)
	assert.Equal(t, "Tomatoes", report.Predictions[0].Product)
	assert.Equal(t, 35.0, report.Predictions[0].PredictedPrice)
	assert.Equal(t, "up", report.Predictions[0].Trend)
	assert.Len(t, report.MarketInsights, 2)
	assert.Equal(t, "Jan", report.PriceHistory[0]["month"])

	var parseErr *models.ParseError
	_, err = ExtractReport("prices are stable this week")
	assert.True(t, errors.As(err, &parseErr))

	_, err = ExtractReport("{not json}")
	assert.True(t, errors.As(err, &parseErr))
}

func TestSuggestedPrices(t *testing.T) {
	report, err := ExtractReport(answer)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Tomatoes": 35, "Rice": 44}, SuggestedPrices(report))
}

func TestService_Predict(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Temperature == DefaultTemperature &&
			len(req.Messages) == 1 &&
			strings.Contains(req.Messages[0].Content, "For each crop: Tomatoes, Rice, Spinach, Mangoes, Potatoes")
	})).Return(answer, nil)

	svc := NewService(provider, nil, nil)
	report, err := svc.Predict(context.Background(), models.PricingRequest{})
	require.NoError(t, err)
	assert.Len(t, report.Predictions, 2)
	provider.AssertExpectations(t)
}

func TestService_PredictErrors(t *testing.T) {
	var netErr *models.NetworkError
	var parseErr *models.ParseError

	failing := new(MockProvider)
	failing.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("gateway timeout"))
	_, err := NewService(failing, nil, nil).Predict(context.Background(), models.PricingRequest{})
	assert.True(t, errors.As(err, &netErr))

	chatty := new(MockProvider)
	chatty.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that.", nil)
	_, err = NewService(chatty, nil, nil).Predict(context.Background(), models.PricingRequest{})
	assert.True(t, errors.As(err, &parseErr))

	_, err = NewService(nil, nil, nil).Predict(context.Background(), models.PricingRequest{})
	require.True(t, errors.As(err, &netErr))
	assert.True(t, errors.Is(err, llm.ErrNotConfigured))
}
