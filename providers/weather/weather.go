package weather

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"impact-agent/models"
)

// ArchiveBaseURL is the Open-Meteo historical archive endpoint. No API
// key is required.
const ArchiveBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// Client looks up historical hourly weather for a coordinate and
// timestamp.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new weather client. A zero timeout defaults to 30s.
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    ArchiveBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type archiveResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature2m []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		WeatherCode   []int     `json:"weather_code"`
		WindSpeed10m  []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Historical returns the archive weather at the hour closest to the
// given timestamp. Errors propagate to the caller; the pipeline treats
// them as a nil weather context.
func (c *Client) Historical(coords models.Coordinates, timestamp time.Time) (*models.WeatherContext, error) {
	day := timestamp.UTC().Format("2006-01-02")

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", coords.Lat))
	params.Set("longitude", fmt.Sprintf("%f", coords.Lng))
	params.Set("start_date", day)
	params.Set("end_date", day)
	params.Set("timezone", "UTC")
	params.Set("hourly", "temperature_2m,precipitation,weather_code,wind_speed_10m")

	req, err := http.NewRequest("GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("archive API returned status %d: %s", resp.StatusCode, string(body))
	}

	var archResp archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(archResp.Hourly.Time) == 0 {
		return nil, fmt.Errorf("archive returned no hourly times")
	}

	idx := closestIndex(archResp.Hourly.Time, timestamp)

	result := &models.WeatherContext{MatchedTime: archResp.Hourly.Time[idx]}
	if idx < len(archResp.Hourly.Temperature2m) {
		result.Temperature = archResp.Hourly.Temperature2m[idx]
	}
	if idx < len(archResp.Hourly.Precipitation) {
		result.Precipitation = archResp.Hourly.Precipitation[idx]
	}
	if idx < len(archResp.Hourly.WindSpeed10m) {
		result.WindSpeed = archResp.Hourly.WindSpeed10m[idx]
	}
	if idx < len(archResp.Hourly.WeatherCode) {
		result.WeatherCode = archResp.Hourly.WeatherCode[idx]
		result.Conditions = Condition(result.WeatherCode)
	}
	return result, nil
}

// closestIndex finds the hourly slot nearest to the target time.
// Archive times come back as "2006-01-02T15:04" in UTC.
func closestIndex(times []string, target time.Time) int {
	bestIdx := 0
	bestDiff := math.MaxFloat64
	for i, ts := range times {
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		diff := math.Abs(t.Sub(target.UTC()).Seconds())
		if diff < bestDiff {
			bestDiff = diff
			bestIdx = i
		}
	}
	return bestIdx
}

// weatherConditions maps Open-Meteo weather codes to readable strings.
var weatherConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Condition renders a weather code as a human-readable string.
func Condition(code int) string {
	if cond, ok := weatherConditions[code]; ok {
		return cond
	}
	return "Unknown"
}
