package news

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"impact-agent/models"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		location *models.GeoContext
		want     string
	}{
		{
			"city state and country",
			&models.GeoContext{City: "Denver", State: "Colorado", Country: "United States"},
			`"Denver Colorado" OR "United States"`,
		},
		{
			"country only",
			&models.GeoContext{Country: "Slovenia"},
			`"Slovenia"`,
		},
		{
			"city only",
			&models.GeoContext{City: "Denver"},
			`"Denver"`,
		},
		{
			"empty location",
			&models.GeoContext{},
			`"local news"`,
		},
		{
			"nil location",
			nil,
			`"local news"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.location); got != tt.want {
				t.Errorf("buildQuery = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !strings.Contains(q.Get("query"), `"Denver Colorado"`) {
			t.Errorf("query = %q, missing quoted location", q.Get("query"))
		}
		// ±1 day around 2024-06-15T14:30Z.
		if q.Get("startdatetime") != "20240614143000" {
			t.Errorf("startdatetime = %q", q.Get("startdatetime"))
		}
		if q.Get("enddatetime") != "20240616143000" {
			t.Errorf("enddatetime = %q", q.Get("enddatetime"))
		}
		if q.Get("mode") != "ArtList" {
			t.Errorf("mode = %q", q.Get("mode"))
		}
		w.Write([]byte(`{
			"articles": [
				{"url": "https://example.com/a", "title": "City repairs sidewalks", "seendate": "20240615T120000Z", "domain": "example.com", "sourcecountry": "United States"},
				{"url": "https://example.com/b", "title": "Budget approved", "seendate": "20240614T090000Z", "domain": "example.com", "sourcecountry": "United States"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, 1, 25)
	c.baseURL = srv.URL

	got, err := c.Search(
		&models.GeoContext{City: "Denver", State: "Colorado", Country: "United States"},
		time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	if got[0].Title != "City repairs sidewalks" || got[0].URL != "https://example.com/a" {
		t.Errorf("first article = %+v", got[0])
	}
}

func TestSearchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(time.Second, 1, 25)
	c.baseURL = srv.URL

	_, err := c.Search(&models.GeoContext{Country: "Slovenia"}, time.Now())
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want a rate-limit error", err)
	}
}

func TestSearchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles": []}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, 1, 25)
	c.baseURL = srv.URL

	got, err := c.Search(&models.GeoContext{Country: "Slovenia"}, time.Now())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d articles, want 0", len(got))
	}
}
