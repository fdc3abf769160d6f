package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"farmlink/internal/models"

	"go.uber.org/zap"
)

const (
	// Default coordinates are New Delhi.
	DefaultLatitude  = 28.6139
	DefaultLongitude = 77.2090

	Source      = "NASA POWER (Satellite)"
	serviceName = "weather"

	// missing marks a day without data in NASA POWER series
	missing = -999

	forecastDays = 7
)

var parameters = []string{
	"T2M", "T2M_MAX", "T2M_MIN", "RH2M",
	"WS10M", "WS10M_MAX", "WD10M",
	"PRECTOTCORR", "ALLSKY_SFC_UV_INDEX",
}

// Observer records upstream call latency.
type Observer interface {
	ObserveUpstream(service string, start time.Time, err error)
}

// Client fetches daily point data from NASA POWER and reshapes it into a report.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a weather client. observer may be nil.
func NewClient(baseURL string, timeout time.Duration, observer Observer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

type powerResponse struct {
	Properties *struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// Forecast returns current conditions, the last seven valid days and alerts for
// the requested point, defaulting to New Delhi.
func (c *Client) Forecast(ctx context.Context, req models.WeatherRequest) (report *models.WeatherReport, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(serviceName, start, err)
		}
	}()

	loc := models.Coordinates{Latitude: DefaultLatitude, Longitude: DefaultLongitude}
	if req.Latitude != nil {
		loc.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		loc.Longitude = *req.Longitude
	}

	reqURL, err := c.requestURL(loc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetching NASA POWER data", zap.String("url", reqURL))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &models.NetworkError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.NetworkError{Service: serviceName, StatusCode: resp.StatusCode}
	}

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &models.ParseError{Service: serviceName, Err: err}
	}
	if payload.Properties == nil || payload.Properties.Parameter == nil {
		return nil, &models.ParseError{Service: serviceName, Err: errors.New("response has no parameter data")}
	}

	return BuildReport(payload.Properties.Parameter, loc)
}

// requestURL covers end = today-2 (the latest days are usually still missing)
// back to end-9, enough to find seven valid days.
func (c *Client) requestURL(loc models.Coordinates) (string, error) {
	end := c.now().UTC().AddDate(0, 0, -2)
	begin := end.AddDate(0, 0, -9)

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid weather base url: %w", err)
	}
	q := u.Query()
	q.Set("parameters", strings.Join(parameters, ","))
	q.Set("community", "AG")
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("start", begin.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("format", "JSON")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BuildReport reshapes NASA POWER daily series keyed by YYYYMMDD.
func BuildReport(params map[string]map[string]float64, loc models.Coordinates) (*models.WeatherReport, error) {
	t2m, t2mMax := params["T2M"], params["T2M_MAX"]
	if t2m == nil || t2mMax == nil {
		return nil, &models.ParseError{Service: serviceName, Err: errors.New("temperature series missing")}
	}

	dates := make([]string, 0, len(t2m))
	for date, v := range t2m {
		hi, ok := t2mMax[date]
		if v == missing || !ok || hi == missing {
			continue
		}
		dates = append(dates, date)
	}
	if len(dates) == 0 {
		return nil, &models.ParseError{Service: serviceName, Err: errors.New("no valid data for this period")}
	}
	sort.Strings(dates)
	if len(dates) > forecastDays {
		dates = dates[len(dates)-forecastDays:]
	}

	latest := dates[len(dates)-1]
	// absent and missing values both read as 0
	value := func(name, date string) float64 {
		v, ok := params[name][date]
		if !ok || v == missing {
			return 0
		}
		return v
	}

	temp := value("T2M", latest)
	wind := value("WS10M", latest)
	current := models.CurrentWeather{
		Temperature:   round(temp, 0),
		FeelsLike:     round(temp-wind*0.2, 0),
		Humidity:      round(value("RH2M", latest), 0),
		WindSpeed:     round(wind*3.6, 0),
		WindDirection: round(value("WD10M", latest), 0),
		UVIndex:       round(value("ALLSKY_SFC_UV_INDEX", latest), 1),
		Condition:     Condition(value("PRECTOTCORR", latest), value("RH2M", latest)),
	}

	forecast := make([]models.ForecastDay, 0, len(dates))
	for i := len(dates) - 1; i >= 0; i-- {
		date := dates[i]
		day, err := time.Parse("20060102", date)
		if err != nil {
			return nil, &models.ParseError{Service: serviceName, Err: fmt.Errorf("bad date key %q", date)}
		}
		label := day.Format("Mon")
		if i == len(dates)-1 {
			label = "Latest"
		}

		windMax := value("WS10M", date)
		if v, ok := params["WS10M_MAX"][date]; ok && v != missing {
			windMax = v
		}
		rain := value("PRECTOTCORR", date)
		forecast = append(forecast, models.ForecastDay{
			Date:        day.Format("2006-01-02"),
			Day:         label,
			TempMax:     round(value("T2M_MAX", date), 0),
			TempMin:     round(value("T2M_MIN", date), 0),
			Rain:        round(rain, 1),
			WeatherCode: RainToCode(rain),
			WindMax:     round(windMax*3.6, 0),
		})
	}

	return &models.WeatherReport{
		Current:  current,
		Forecast: forecast,
		Alerts:   DeriveAlerts(forecast),
		Location: loc,
		Source:   Source,
	}, nil
}

// Condition describes a day from its rainfall (mm) and relative humidity (%).
func Condition(rain, humidity float64) string {
	switch {
	case rain > 10:
		return "Heavy rain"
	case rain > 5:
		return "Moderate rain"
	case rain > 1:
		return "Light rain"
	case rain > 0.1:
		return "Light drizzle"
	case humidity > 90:
		return "Overcast"
	case humidity > 70:
		return "Partly cloudy"
	case humidity > 50:
		return "Mainly clear"
	}
	return "Clear sky"
}

// RainToCode maps rainfall to a WMO weather code.
func RainToCode(rain float64) int {
	switch {
	case rain > 20:
		return 65
	case rain > 5:
		return 63
	case rain > 1:
		return 61
	case rain > 0.1:
		return 51
	}
	return 0
}

// DeriveAlerts turns a forecast into farming advisories. With nothing to report
// it returns a single success alert.
func DeriveAlerts(forecast []models.ForecastDay) []models.WeatherAlert {
	var alerts []models.WeatherAlert
	for _, day := range forecast {
		switch {
		case day.Rain > 50:
			alerts = append(alerts, models.WeatherAlert{
				Type: models.AlertWarning,
				Text: fmt.Sprintf("Heavy rainfall on %s (%smm). Protect exposed crops.", day.Day, num(day.Rain)),
			})
		case day.Rain > 20:
			alerts = append(alerts, models.WeatherAlert{
				Type: models.AlertInfo,
				Text: fmt.Sprintf("Moderate rain on %s (%smm). Good for soil moisture.", day.Day, num(day.Rain)),
			})
		}
		if day.TempMax > 40 {
			alerts = append(alerts, models.WeatherAlert{
				Type: models.AlertWarning,
				Text: fmt.Sprintf("Extreme heat on %s (%s°C). Increase irrigation.", day.Day, num(day.TempMax)),
			})
		}
		if day.WindMax > 40 {
			alerts = append(alerts, models.WeatherAlert{
				Type: models.AlertWarning,
				Text: fmt.Sprintf("High winds on %s (%s km/h). Secure crops.", day.Day, num(day.WindMax)),
			})
		}
	}
	if len(alerts) == 0 {
		alerts = append(alerts, models.WeatherAlert{
			Type: models.AlertSuccess,
			Text: "Weather conditions are favorable. No major alerts.",
		})
	}
	return alerts
}

// round rounds half up, so -2.5 becomes -2.
func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Floor(v*factor+0.5) / factor
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
