package news

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"impact-agent/models"
)

// DocBaseURL is the GDELT DOC 2.0 API endpoint. No API key is required.
const DocBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

// Client queries the GDELT global news index for articles near a
// location and time window.
type Client struct {
	baseURL    string
	httpClient *http.Client
	daysWindow int
	maxRecords int
}

// NewClient creates a new news client. Zero values default to a 30s
// timeout, a ±1 day window and 25 records.
func NewClient(timeout time.Duration, daysWindow, maxRecords int) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if daysWindow == 0 {
		daysWindow = 1
	}
	if maxRecords == 0 {
		maxRecords = 25
	}
	return &Client{
		baseURL:    DocBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		daysWindow: daysWindow,
		maxRecords: maxRecords,
	}
}

type docResponse struct {
	Articles []struct {
		URL           string `json:"url"`
		Title         string `json:"title"`
		SeenDate      string `json:"seendate"`
		Domain        string `json:"domain"`
		SourceCountry string `json:"sourcecountry"`
	} `json:"articles"`
}

// Search returns articles mentioning the resolved location within the
// configured window around the capture timestamp. The query needs the
// geocoder's output, so this provider always runs after location
// resolution. Errors propagate to the caller; the pipeline treats them
// as absent news.
func (c *Client) Search(location *models.GeoContext, timestamp time.Time) ([]models.NewsArticle, error) {
	query := buildQuery(location)

	window := time.Duration(c.daysWindow) * 24 * time.Hour
	start := timestamp.Add(-window).UTC()
	end := timestamp.Add(window).UTC()

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "ArtList")
	params.Set("format", "json")
	params.Set("startdatetime", start.Format("20060102150405"))
	params.Set("enddatetime", end.Format("20060102150405"))
	params.Set("maxrecords", fmt.Sprintf("%d", c.maxRecords))
	params.Set("sort", "datedesc")

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

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("news index rate limited (429), Retry-After=%s",
			resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("news index returned status %d: %s", resp.StatusCode, string(body))
	}

	var docResp docResponse
	if err := json.NewDecoder(resp.Body).Decode(&docResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	articles := make([]models.NewsArticle, 0, len(docResp.Articles))
	for _, a := range docResp.Articles {
		articles = append(articles, models.NewsArticle{
			Title:   a.Title,
			URL:     a.URL,
			Seen:    a.SeenDate,
			Domain:  a.Domain,
			Country: a.SourceCountry,
		})
	}
	return articles, nil
}

// buildQuery assembles quoted location phrases joined by OR.
func buildQuery(location *models.GeoContext) string {
	var phrases []string
	if location != nil {
		cityState := strings.TrimSpace(strings.Join(nonEmpty(location.City, location.State), " "))
		if cityState != "" {
			phrases = append(phrases, `"`+cityState+`"`)
		}
		if location.Country != "" {
			phrases = append(phrases, `"`+location.Country+`"`)
		}
	}
	if len(phrases) == 0 {
		return `"local news"`
	}
	return strings.Join(phrases, " OR ")
}

func nonEmpty(strs ...string) []string {
	out := make([]string, 0, len(strs))
	for _, s := range strs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
