package models

// WeatherRequest is the body accepted by the weather route.
type WeatherRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CurrentWeather summarizes the most recent observed day.
type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feelsLike"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection float64 `json:"windDirection"`
	UVIndex       float64 `json:"uvIndex"`
	Condition     string  `json:"condition"`
}

// ForecastDay is one day of the daily series, newest first.
type ForecastDay struct {
	Date        string  `json:"date"`
	Day         string  `json:"day"`
	TempMax     float64 `json:"tempMax"`
	TempMin     float64 `json:"tempMin"`
	Rain        float64 `json:"rain"`
	WeatherCode int     `json:"weatherCode"`
	WindMax     float64 `json:"windMax"`
}

// AlertType classifies a weather alert.
type AlertType string

const (
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
	AlertSuccess AlertType = "success"
)

// WeatherAlert is a farming advisory derived from the forecast.
type WeatherAlert struct {
	Type AlertType `json:"type"`
	Text string    `json:"text"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherReport is the reshaped weather collaborator response.
type WeatherReport struct {
	Current  CurrentWeather `json:"current"`
	Forecast []ForecastDay  `json:"forecast"`
	Alerts   []WeatherAlert `json:"alerts"`
	Location Coordinates    `json:"location"`
	Source   string         `json:"source"`
}
