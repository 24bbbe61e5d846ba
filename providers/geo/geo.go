package geo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"impact-agent/models"
)

const (
	// NominatimBaseURL is the public Nominatim API endpoint
	NominatimBaseURL = "https://nominatim.openstreetmap.org"
	// UserAgent is required by Nominatim usage policy
	UserAgent = "ImpactAgent/1.0"
	// Rate limit: 1 request per second for Nominatim
	minRequestInterval = time.Second
)

// Client handles Nominatim reverse geocoding with rate limiting.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	lastRequest   time.Time
	rateLimitLock sync.Mutex
}

// NewClient creates a new geocoding client. A zero timeout defaults to 30s.
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    NominatimBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// nominatimResponse is the subset of the reverse geocoding response
// the pipeline relies on.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// enforceRateLimit ensures we don't exceed Nominatim's rate limit
func (c *Client) enforceRateLimit() {
	c.rateLimitLock.Lock()
	defer c.rateLimitLock.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// ReverseGeocode resolves coordinates to address components. Errors
// propagate to the caller; the pipeline treats them as a nil location.
func (c *Client) ReverseGeocode(coords models.Coordinates) (*models.GeoContext, error) {
	c.enforceRateLimit()

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", coords.Lat))
	params.Set("lon", fmt.Sprintf("%f", coords.Lng))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	reqURL := fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, string(body))
	}

	var nomResp nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nomResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if nomResp.DisplayName == "" {
		return nil, fmt.Errorf("nominatim returned no result for (%f, %f)", coords.Lat, coords.Lng)
	}

	return &models.GeoContext{
		Address:     nomResp.DisplayName,
		City:        firstNonEmpty(nomResp.Address.City, nomResp.Address.Town, nomResp.Address.Village),
		State:       nomResp.Address.State,
		Country:     nomResp.Address.Country,
		Coordinates: coords,
	}, nil
}

// firstNonEmpty returns the first non-empty string from the arguments
func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}
