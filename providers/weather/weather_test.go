package weather

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"impact-agent/models"
)

func TestCondition(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{1, "Mainly clear"},
		{3, "Overcast"},
		{45, "Foggy"},
		{65, "Heavy rain"},
		{75, "Heavy snow"},
		{95, "Thunderstorm"},
		{99, "Thunderstorm with heavy hail"},
		{42, "Unknown"},
		{-1, "Unknown"},
	}
	for _, tt := range tests {
		if got := Condition(tt.code); got != tt.want {
			t.Errorf("Condition(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestClosestIndex(t *testing.T) {
	times := []string{
		"2024-06-15T12:00",
		"2024-06-15T13:00",
		"2024-06-15T14:00",
		"2024-06-15T15:00",
	}

	tests := []struct {
		name   string
		target time.Time
		want   int
	}{
		{"exact hour", time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC), 2},
		{"rounds to nearest", time.Date(2024, 6, 15, 14, 40, 0, 0, time.UTC), 3},
		{"before range clamps to first", time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC), 0},
		{"after range clamps to last", time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := closestIndex(times, tt.target); got != tt.want {
				t.Errorf("closestIndex = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHistorical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start_date") != "2024-06-15" || q.Get("end_date") != "2024-06-15" {
			t.Errorf("unexpected date range: %s / %s", q.Get("start_date"), q.Get("end_date"))
		}
		if q.Get("timezone") != "UTC" {
			t.Errorf("timezone = %q, want UTC", q.Get("timezone"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hourly": {
				"time": ["2024-06-15T13:00", "2024-06-15T14:00", "2024-06-15T15:00"],
				"temperature_2m": [-5.0, -6.3, -7.1],
				"precipitation": [0.0, 0.2, 0.0],
				"weather_code": [0, 1, 3],
				"wind_speed_10m": [10.0, 12.5, 9.8]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.baseURL = srv.URL

	got, err := c.Historical(
		models.Coordinates{Lat: 39.7392, Lng: -104.9903},
		time.Date(2024, 6, 15, 14, 10, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("Historical failed: %v", err)
	}

	if got.MatchedTime != "2024-06-15T14:00" {
		t.Errorf("matched time = %q", got.MatchedTime)
	}
	if got.Temperature != -6.3 {
		t.Errorf("temperature = %v, want -6.3", got.Temperature)
	}
	if got.WeatherCode != 1 || got.Conditions != "Mainly clear" {
		t.Errorf("conditions = %d %q", got.WeatherCode, got.Conditions)
	}
	if got.WindSpeed != 12.5 {
		t.Errorf("wind speed = %v", got.WindSpeed)
	}
}

func TestHistoricalEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly": {"time": []}}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.baseURL = srv.URL

	_, err := c.Historical(models.Coordinates{Lat: 1, Lng: 2}, time.Now())
	if err == nil {
		t.Error("expected an error for an empty hourly series")
	}
}

func TestHistoricalServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	c.baseURL = srv.URL

	_, err := c.Historical(models.Coordinates{Lat: 1, Lng: 2}, time.Now())
	if err == nil {
		t.Error("expected an error for a 500 response")
	}
}
