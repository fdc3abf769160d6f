package models

// PricingRequest is the body accepted by the pricing route.
type PricingRequest struct {
	Crops  []string `json:"crops"`
	Region string   `json:"region"`
}

// PricePoint is one month of history. Prices are keyed by lower-cased crop name.
type PricePoint map[string]interface{}

// PricePrediction is the model's next-week outlook for one crop.
type PricePrediction struct {
	Product        string  `json:"product"`
	CurrentPrice   float64 `json:"currentPrice"`
	PredictedPrice float64 `json:"predictedPrice"`
	Trend          string  `json:"trend"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// PricingReport is the decoded LLM answer. Numbers are passed through as given.
type PricingReport struct {
	PriceHistory   []PricePoint      `json:"priceHistory"`
	Predictions    []PricePrediction `json:"predictions"`
	MarketInsights []string          `json:"marketInsights"`
}
