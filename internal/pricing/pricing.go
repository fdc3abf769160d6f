// Package pricing asks an LLM for crop market prices and decodes its answer.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"farmlink/internal/llm"
	"farmlink/internal/models"

	"go.uber.org/zap"
)

const (
	serviceName = "pricing"

	DefaultRegion      = "India"
	DefaultTemperature = 0.3
)

// DefaultCrops are priced when a request names none.
var DefaultCrops = []string{"Tomatoes", "Rice", "Spinach", "Mangoes", "Potatoes"}

var jsonBlock = regexp.MustCompile(`\{[\s\S]*\}`)

// Observer records upstream call latency.
type Observer interface {
	ObserveUpstream(service string, start time.Time, err error)
}

// Service builds the analyst prompt and turns the completion into a report.
type Service struct {
	provider    llm.Provider
	temperature float64
	observer    Observer
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates the pricing service. A nil provider makes every call fail
// with a NetworkError wrapping llm.ErrNotConfigured.
func NewService(provider llm.Provider, observer Observer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider:    provider,
		temperature: DefaultTemperature,
		observer:    observer,
		logger:      logger,
		now:         time.Now,
	}
}

// SetTemperature overrides DefaultTemperature.
func (s *Service) SetTemperature(temp float64) {
	s.temperature = temp
}

// Normalize fills in the default crops and region.
func Normalize(req models.PricingRequest) models.PricingRequest {
	var crops []string
	for _, c := range req.Crops {
		if c = strings.TrimSpace(c); c != "" {
			crops = append(crops, c)
		}
	}
	if len(crops) == 0 {
		crops = append([]string(nil), DefaultCrops...)
	}
	region := strings.TrimSpace(req.Region)
	if region == "" {
		region = DefaultRegion
	}
	return models.PricingRequest{Crops: crops, Region: region}
}

// Predict requests a pricing report. Model numbers are returned as given.
func (s *Service) Predict(ctx context.Context, req models.PricingRequest) (report *models.PricingReport, err error) {
	req = Normalize(req)

	if s.provider == nil {
		return nil, &models.NetworkError{Service: serviceName, Err: llm.ErrNotConfigured}
	}

	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveUpstream(serviceName, start, err)
		}
	}()

	prompt := BuildPrompt(req.Crops, req.Region, s.now())
	content, err := s.provider.Complete(ctx, llm.UserPrompt(prompt, s.temperature))
	if err != nil {
		s.logger.Error("pricing completion failed", zap.String("provider", s.provider.Name()), zap.Error(err))
		return nil, &models.NetworkError{Service: serviceName, Err: err}
	}

	report, err = ExtractReport(content)
	if err != nil {
		s.logger.Warn("unparseable pricing answer", zap.Int("length", len(content)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("pricing report generated",
		zap.Strings("crops", req.Crops),
		zap.String("region", req.Region),
		zap.Int("predictions", len(report.Predictions)))
	return report, nil
}

// ExtractReport decodes the outermost {...} block of an answer, which tolerates
// markdown fences and surrounding prose.
func ExtractReport(content string) (*models.PricingReport, error) {
	block := jsonBlock.FindString(content)
	if block == "" {
		return nil, &models.ParseError{Service: serviceName, Err: errors.New("no JSON object in answer")}
	}

	var report models.PricingReport
	if err := json.Unmarshal([]byte(block), &report); err != nil {
		return nil, &models.ParseError{Service: serviceName, Err: err}
	}
	return &report, nil
}

// SuggestedPrices maps each predicted product to its predicted price.
func SuggestedPrices(report *models.PricingReport) map[string]float64 {
	prices := make(map[string]float64, len(report.Predictions))
	for _, p := range report.Predictions {
		if p.Product != "" {
			prices[p.Product] = p.PredictedPrice
		}
	}
	return prices
}

// BuildPrompt renders the market analyst prompt for crops in region as of today.
func BuildPrompt(crops []string, region string, today time.Time) string {
	keys := make([]string, len(crops))
	for i, c := range crops {
		keys[i] = fmt.Sprintf("%q: <price_inr_per_kg>", strings.ToLower(c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an agricultural market analyst. Provide realistic current market pricing data for these crops in %s as of %s.\n\n",
		region, today.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "For each crop: %s\n\n", strings.Join(crops, ", "))
	b.WriteString("Return a JSON object with this exact structure (no markdown, no explanation, just JSON):\n")
	b.WriteString("{\n  \"priceHistory\": [\n")
	fmt.Fprintf(&b, "    { \"month\": \"Jan\", %s },\n", strings.Join(keys, ", "))
	b.WriteString("    ... (6 months of historical data)\n  ],\n")
	b.WriteString(`  "predictions": [
    {
      "product": "<crop_name>",
      "currentPrice": <current_price_inr>,
      "predictedPrice": <predicted_price_next_week>,
      "trend": "up" or "down",
      "confidence": <0.0 to 1.0>,
      "reason": "<brief reason for trend>"
    }
  ],
  "marketInsights": [
    "<insight about current market conditions>",
    "<insight about seasonal patterns>",
    "<insight about demand trends>"
  ]
}

Use realistic Indian market prices in INR per kg. Base predictions on seasonal patterns, monsoon effects, festival demand, and typical supply chain factors.`)
	return b.String()
}
