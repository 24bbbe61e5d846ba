// Package ipfs publishes analysis records and their source images to
// IPFS through the Pinata pinning API.
package ipfs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/apex/log"

	"impact-agent/models"
)

const pinataBaseURL = "https://api.pinata.cloud"

// ErrPublish wraps any failure while pinning. Callers treat a publish
// failure as fatal for the file: a proposal must not reference content
// that was never pinned.
var ErrPublish = errors.New("ipfs publish failed")

// Publication holds the content identifiers of a pinned analysis pair.
type Publication struct {
	ImageCID    string `json:"imageCid"`
	AnalysisCID string `json:"analysisCid"`
	ImageURL    string `json:"imageUrl"`
	AnalysisURL string `json:"analysisUrl"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Publisher is a Pinata API client authenticated with a JWT.
type Publisher struct {
	jwt     string
	baseURL string
	gateway string
	client  *http.Client
}

// NewPublisher creates a Pinata client. Empty baseURL or gateway fall
// back to the public endpoints.
func NewPublisher(jwt, baseURL, gateway string) *Publisher {
	if baseURL == "" {
		baseURL = pinataBaseURL
	}
	if gateway == "" {
		gateway = "https://gateway.pinata.cloud/ipfs"
	}
	return &Publisher{
		jwt:     jwt,
		baseURL: baseURL,
		gateway: gateway,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PinJSON pins an analysis record as a JSON object. The pin name and
// keyvalue metadata make records findable in the Pinata dashboard.
func (p *Publisher) PinJSON(record *models.CanonicalAnalysisRecord, name string) (string, error) {
	meta := map[string]interface{}{
		"name": name,
		"keyvalues": map[string]string{
			"type":      "impact-analysis",
			"timestamp": record.Metadata.Timestamp,
			"category":  record.ImpactAssessment.Category,
			"urgency":   record.ImpactAssessment.Urgency,
			"score":     fmt.Sprintf("%d", record.ImpactAssessment.Score),
		},
	}
	body := map[string]interface{}{
		"pinataContent":  record,
		"pinataMetadata": meta,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: marshal pin request: %v", ErrPublish, err)
	}

	req, err := http.NewRequest("POST", p.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	return p.doPin(req)
}

// PinFile pins raw bytes (the normalized image) as a multipart upload.
func (p *Publisher) PinFile(data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	metaJSON, _ := json.Marshal(map[string]interface{}{
		"name": filename,
		"keyvalues": map[string]string{
			"type": "impact-evidence",
		},
	})
	if err := writer.WriteField("pinataMetadata", string(metaJSON)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}

	req, err := http.NewRequest("POST", p.baseURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	return p.doPin(req)
}

// PinAnalysisWithImage pins the image first, injects its CID and
// gateway URL into the record, then pins the record. If either pin
// fails nothing is returned: a half-published pair is worse than none.
func (p *Publisher) PinAnalysisWithImage(record *models.CanonicalAnalysisRecord, image []byte, name string) (*Publication, error) {
	imageCID, err := p.PinFile(image, name+".jpg")
	if err != nil {
		return nil, err
	}
	imageURL := fmt.Sprintf("%s/%s", p.gateway, imageCID)
	log.Infof("Pinned image %s: %s", name, imageCID)

	record.Metadata.ImageCID = imageCID
	record.Metadata.ImageURL = imageURL

	analysisCID, err := p.PinJSON(record, name+"-analysis")
	if err != nil {
		return nil, err
	}
	log.Infof("Pinned analysis %s: %s", name, analysisCID)

	return &Publication{
		ImageCID:    imageCID,
		AnalysisCID: analysisCID,
		ImageURL:    imageURL,
		AnalysisURL: fmt.Sprintf("%s/%s", p.gateway, analysisCID),
	}, nil
}

func (p *Publisher) doPin(req *http.Request) (string, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrPublish, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: pinata returned status %d: %s", ErrPublish, resp.StatusCode, string(body))
	}

	var pin pinResponse
	if err := json.Unmarshal(body, &pin); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrPublish, err)
	}
	if pin.IpfsHash == "" {
		return "", fmt.Errorf("%w: pinata response missing IpfsHash", ErrPublish)
	}
	return pin.IpfsHash, nil
}
