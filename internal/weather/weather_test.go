package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePayload has nine days; the last two are missing like real NASA POWER data.
const samplePayload = `{
  "properties": {
    "parameter": {
      "T2M":       {"20260201": 21.2, "20260202": 22.4, "20260203": 23.1, "20260204": 24.0, "20260205": 22.8, "20260206": 21.9, "20260207": 23.6, "20260208": -999, "20260209": -999},
      "T2M_MAX":   {"20260201": 28.0, "20260202": 29.1, "20260203": 41.2, "20260204": 30.4, "20260205": 29.9, "20260206": 28.3, "20260207": 30.0, "20260208": -999, "20260209": -999},
      "T2M_MIN":   {"20260201": 14.1, "20260202": 15.0, "20260203": 16.2, "20260204": 17.0, "20260205": 15.5, "20260206": 14.8, "20260207": 16.1, "20260208": -999, "20260209": -999},
      "RH2M":      {"20260201": 60, "20260202": 64, "20260203": 58, "20260204": 72, "20260205": 80, "20260206": 75, "20260207": 55, "20260208": -999, "20260209": -999},
      "WS10M":     {"20260201": 2.0, "20260202": 2.5, "20260203": 3.0, "20260204": 2.2, "20260205": 2.8, "20260206": 3.1, "20260207": 5.0, "20260208": -999, "20260209": -999},
      "WS10M_MAX": {"20260201": 4.0, "20260202": 5.0, "20260203": 6.0, "20260204": 12.5, "20260205": 5.5, "20260206": 6.1, "20260207": 8.0, "20260208": -999, "20260209": -999},
      "WD10M":     {"20260207": 270},
      "PRECTOTCORR": {"20260201": 0, "20260202": 0.05, "20260203": 0, "20260204": 60.2, "20260205": 25.0, "20260206": 0.3, "20260207": 0, "20260208": -999, "20260209": -999},
      "ALLSKY_SFC_UV_INDEX": {"20260207": 6.44}
    }
  }
}`

func TestDeriveAlerts_HeavyRain(t *testing.T) {
	alerts := DeriveAlerts([]models.ForecastDay{{Day: "Wed", Rain: 60, TempMax: 30, WindMax: 10}})
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertWarning, alerts[0].Type)
	assert.Contains(t, alerts[0].Text, "Wed")
	assert.Contains(t, alerts[0].Text, "60mm")
}

func TestDeriveAlerts(t *testing.T) {
	alerts := DeriveAlerts([]models.ForecastDay{
		{Day: "Latest", Rain: 25, TempMax: 42, WindMax: 45},
		{Day: "Mon", Rain: 20, TempMax: 40, WindMax: 40},
	})
	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertInfo, alerts[0].Type)
	assert.Equal(t, "Extreme heat on Latest (42°C). Increase irrigation.", alerts[1].Text)
	assert.Equal(t, "High winds on Latest (45 km/h). Secure crops.", alerts[2].Text)

	calm := DeriveAlerts([]models.ForecastDay{{Day: "Tue", Rain: 1, TempMax: 30, WindMax: 12}})
	assert.Equal(t, []models.WeatherAlert{{Type: models.AlertSuccess, Text: "Weather conditions are favorable. No major alerts."}}, calm)
}

func TestCondition(t *testing.T) {
	assert.Equal(t, "Heavy rain", Condition(12, 40))
	assert.Equal(t, "Moderate rain", Condition(6, 40))
	assert.Equal(t, "Light rain", Condition(2, 40))
	assert.Equal(t, "Light drizzle", Condition(0.5, 40))
	assert.Equal(t, "Overcast", Condition(0, 95))
	assert.Equal(t, "Partly cloudy", Condition(0, 80))
	assert.Equal(t, "Mainly clear", Condition(0, 60))
	assert.Equal(t, "Clear sky", Condition(0, 30))
}

func TestRainToCode(t *testing.T) {
	assert.Equal(t, 65, RainToCode(21))
	assert.Equal(t, 63, RainToCode(6))
	assert.Equal(t, 61, RainToCode(2))
	assert.Equal(t, 51, RainToCode(0.2))
	assert.Equal(t, 0, RainToCode(0.1))
}

func TestClient_Forecast(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":  q.Get("latitude"),
			"longitude": q.Get("longitude"),
			"start":     q.Get("start"),
			"end":       q.Get("end"),
			"community": q.Get("community"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil, nil)
	c.now = func() time.Time { return time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC) }

	lat, lon := 19.99, 73.79
	report, err := c.Forecast(context.Background(), models.WeatherRequest{Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)

	assert.Equal(t, "19.99", gotQuery["latitude"])
	assert.Equal(t, "73.79", gotQuery["longitude"])
	assert.Equal(t, "20260209", gotQuery["end"])
	assert.Equal(t, "20260131", gotQuery["start"])
	assert.Equal(t, "AG", gotQuery["community"])

	require.Len(t, report.Forecast, 7)
	assert.Equal(t, "Latest", report.Forecast[0].Day)
	assert.Equal(t, "2026-02-07", report.Forecast[0].Date)
	assert.Equal(t, "2026-02-01", report.Forecast[6].Date)
	assert.Equal(t, "Sun", report.Forecast[6].Day)

	assert.Equal(t, 24.0, report.Current.Temperature)
	assert.Equal(t, 23.0, report.Current.FeelsLike)
	assert.Equal(t, 18.0, report.Current.WindSpeed)
	assert.Equal(t, 270.0, report.Current.WindDirection)
	assert.Equal(t, 6.4, report.Current.UVIndex)
	assert.Equal(t, "Mainly clear", report.Current.Condition)

	wed := report.Forecast[3]
	assert.Equal(t, "Wed", wed.Day)
	assert.Equal(t, 60.2, wed.Rain)
	assert.Equal(t, 65, wed.WeatherCode)
	assert.Equal(t, 45.0, wed.WindMax)

	types := map[models.AlertType]int{}
	for _, a := range report.Alerts {
		types[a.Type]++
	}
	// heavy rain Wed, heat Tue, wind Wed are warnings; Thu rain is info
	assert.Equal(t, 3, types[models.AlertWarning])
	assert.Equal(t, 1, types[models.AlertInfo])
	assert.Equal(t, Source, report.Source)
	assert.Equal(t, 19.99, report.Location.Latitude)
}

func TestClient_ForecastDefaultsToDelhi(t *testing.T) {
	var lat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lat = r.URL.Query().Get("latitude")
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	report, err := NewClient(srv.URL, time.Second, nil, nil).Forecast(context.Background(), models.WeatherRequest{})
	require.NoError(t, err)
	assert.Equal(t, "28.6139", lat)
	assert.Equal(t, DefaultLongitude, report.Location.Longitude)
}

func TestClient_ForecastErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		network bool
	}{
		{"upstream failure", http.StatusServiceUnavailable, `{}`, true},
		{"not json", http.StatusOK, `<html>`, false},
		{"no properties", http.StatusOK, `{"messages": []}`, false},
		{"all missing", http.StatusOK, `{"properties":{"parameter":{"T2M":{"20260201":-999},"T2M_MAX":{"20260201":-999}}}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second, nil, nil).Forecast(context.Background(), models.WeatherRequest{})
			require.Error(t, err)

			var netErr *models.NetworkError
			var parseErr *models.ParseError
			if tt.network {
				require.True(t, errors.As(err, &netErr))
				assert.Equal(t, tt.status, netErr.StatusCode)
			} else {
				assert.True(t, errors.As(err, &parseErr))
			}
		})
	}
}

func TestClient_ForecastUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second, nil, nil).Forecast(context.Background(), models.WeatherRequest{})
	var netErr *models.NetworkError
	assert.True(t, errors.As(err, &netErr))
}
