// Package pipeline orchestrates the photo-to-proposal flow: metadata
// extraction, concurrent context providers, record formatting, IPFS
// publishing, on-chain submission and ledger bookkeeping.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"impact-agent/chain"
	"impact-agent/config"
	"impact-agent/formatter"
	"impact-agent/ipfs"
	"impact-agent/ledger"
	"impact-agent/media"
	"impact-agent/metrics"
	"impact-agent/models"
	"impact-agent/tagline"
)

// Extractor normalizes a media file and recovers its capture metadata.
type Extractor interface {
	Extract(path string) (*media.Extraction, error)
}

// Vision produces a structured scene analysis from image bytes.
type Vision interface {
	Analyze(imageData []byte) (*models.VisionAnalysis, error)
}

// Geocoder resolves coordinates to an address.
type Geocoder interface {
	ReverseGeocode(coords models.Coordinates) (*models.GeoContext, error)
}

// Weather looks up archive weather at the capture time.
type Weather interface {
	Historical(coords models.Coordinates, timestamp time.Time) (*models.WeatherContext, error)
}

// News searches for articles near the capture location and time.
type News interface {
	Search(location *models.GeoContext, timestamp time.Time) ([]models.NewsArticle, error)
}

// Publisher pins records and evidence to IPFS.
type Publisher interface {
	PinJSON(record *models.CanonicalAnalysisRecord, name string) (string, error)
	PinAnalysisWithImage(record *models.CanonicalAnalysisRecord, image []byte, name string) (*ipfs.Publication, error)
}

// Submitter writes proposals to the DAO contract.
type Submitter interface {
	SubmitSimple(ctx context.Context, description string) (*chain.Receipt, error)
	SubmitStructured(ctx context.Context, meta *chain.ProposalMetadata) (*chain.Receipt, error)
}

// Broker forwards completed records to a message exchange. A nil
// *rabbitmq.Publisher satisfies it as a no-op.
type Broker interface {
	Publish(message interface{}) error
}

// Deps bundles the service collaborators.
type Deps struct {
	Extractor Extractor
	Vision    Vision
	Geocoder  Geocoder
	Weather   Weather
	News      News
	Publisher Publisher
	Submitter Submitter
	Prompter  chain.Prompter
	Ledger    ledger.Ledger
	Tagline   tagline.Generator
	Broker    Broker
}

// Result is the outcome for one input file.
type Result struct {
	Filename   string `json:"filename"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	ProposalID string `json:"proposalId,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	IPFSCID    string `json:"ipfsCID,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Service runs the analysis pipeline.
type Service struct {
	cfg  *config.Config
	deps Deps
}

func NewService(cfg *config.Config, deps Deps) *Service {
	return &Service{cfg: cfg, deps: deps}
}

// Ledger exposes the dedup ledger for read-only status surfaces.
func (s *Service) Ledger() ledger.Ledger {
	return s.deps.Ledger
}

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
}

// ProcessPhotos runs the full pipeline over every unprocessed photo in
// the photos directory. Files are handled strictly sequentially; one
// failure never aborts the batch.
func (s *Service) ProcessPhotos(ctx context.Context) ([]Result, error) {
	files, err := listDir(s.cfg.PhotosDir, func(name string) bool {
		return photoExtensions[strings.ToLower(filepath.Ext(name))]
	})
	if err != nil {
		return nil, fmt.Errorf("cannot read photos directory %s: %w", s.cfg.PhotosDir, err)
	}

	results := make([]Result, 0, len(files))
	for _, filename := range files {
		res := s.processPhoto(ctx, filename)
		results = append(results, res)
	}
	logSummary("photos", results)
	return results, nil
}

func (s *Service) processPhoto(ctx context.Context, filename string) Result {
	start := time.Now()

	processed, err := s.deps.Ledger.IsProcessed(filename)
	if err != nil {
		return failed(filename, fmt.Errorf("ledger lookup: %w", err))
	}
	if processed {
		log.Infof("Skipping %s: already processed", filename)
		metrics.FilesSkippedTotal.Inc()
		return Result{Filename: filename, Skipped: true, Message: "already processed"}
	}

	extraction, err := s.deps.Extractor.Extract(filepath.Join(s.cfg.PhotosDir, filename))
	if err != nil {
		metrics.FilesProcessedTotal.WithLabelValues("failed").Inc()
		return failed(filename, fmt.Errorf("extract: %w", err))
	}

	record := s.analyze(extraction)
	tagline.Enhance(s.deps.Tagline, &record)

	jobID := uuid.New().String()
	if err := s.writeRecord(jobID, &record); err != nil {
		metrics.FilesProcessedTotal.WithLabelValues("failed").Inc()
		return failed(filename, err)
	}

	res := s.submit(ctx, &record, filename, extraction.Buffer)
	result := res.Success
	label := "failed"
	if result {
		label = "success"
	}
	metrics.FilesProcessedTotal.WithLabelValues(label).Inc()
	metrics.ProcessingDurationSeconds.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return res
}

// analyze fans out the context providers and merges their results.
// Provider failures degrade to nil fields, never abort the file.
func (s *Service) analyze(extraction *media.Extraction) models.CanonicalAnalysisRecord {
	capture := extraction.Metadata

	var (
		wg       sync.WaitGroup
		analysis *models.VisionAnalysis
		geoCtx   *models.GeoContext
		weather  *models.WeatherContext
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a, err := s.deps.Vision.Analyze(extraction.Buffer)
		if err != nil {
			log.Errorf("Vision analysis failed: %v", err)
			metrics.ProviderErrorsTotal.WithLabelValues("vision").Inc()
			return
		}
		analysis = a
	}()

	if capture.Location != nil {
		coords := *capture.Location

		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := s.deps.Geocoder.ReverseGeocode(coords)
			if err != nil {
				log.Errorf("Reverse geocoding failed: %v", err)
				metrics.ProviderErrorsTotal.WithLabelValues("geo").Inc()
				return
			}
			geoCtx = g
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := s.deps.Weather.Historical(coords, capture.Timestamp)
			if err != nil {
				log.Errorf("Weather lookup failed: %v", err)
				metrics.ProviderErrorsTotal.WithLabelValues("weather").Inc()
				return
			}
			weather = w
		}()
	}
	wg.Wait()

	// News needs the resolved location, so it runs after the fan-out.
	var articles []models.NewsArticle
	if geoCtx != nil {
		a, err := s.deps.News.Search(geoCtx, capture.Timestamp)
		if err != nil {
			log.Errorf("News search failed: %v", err)
			metrics.ProviderErrorsTotal.WithLabelValues("news").Inc()
		} else {
			articles = a
		}
	}

	return formatter.Format(capture, extraction.Hash, analysis, geoCtx, weather, articles)
}

// ProcessAnalyses submits analysis records that were produced out of
// band and dropped into the analysis directory as JSON files.
func (s *Service) ProcessAnalyses(ctx context.Context) ([]Result, error) {
	files, err := listDir(s.cfg.AnalysisDir, func(name string) bool {
		return strings.HasSuffix(name, ".json")
	})
	if err != nil {
		return nil, fmt.Errorf("cannot read analysis directory %s: %w", s.cfg.AnalysisDir, err)
	}

	results := make([]Result, 0, len(files))
	for _, filename := range files {
		processed, err := s.deps.Ledger.IsProcessed(filename)
		if err != nil {
			results = append(results, failed(filename, fmt.Errorf("ledger lookup: %w", err)))
			continue
		}
		if processed {
			log.Infof("Skipping %s: already processed", filename)
			metrics.FilesSkippedTotal.Inc()
			results = append(results, Result{Filename: filename, Skipped: true, Message: "already processed"})
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.cfg.AnalysisDir, filename))
		if err != nil {
			results = append(results, failed(filename, err))
			continue
		}
		record, err := models.ValidateRecord(data)
		if err != nil {
			results = append(results, failed(filename, err))
			continue
		}

		results = append(results, s.submit(ctx, record, filename, nil))
	}
	logSummary("analyses", results)
	return results, nil
}

// submit pins the record, creates the proposal for the configured
// profile and records the outcome in the ledger. A failure past the
// pin writes a failed ledger row so an ambiguous chain state is never
// retried blindly.
func (s *Service) submit(ctx context.Context, record *models.CanonicalAnalysisRecord, filename string, image []byte) Result {
	var analysisCID string
	if image != nil {
		pub, err := s.deps.Publisher.PinAnalysisWithImage(record, image, strings.TrimSuffix(filename, filepath.Ext(filename)))
		if err != nil {
			return failed(filename, err)
		}
		analysisCID = pub.AnalysisCID
		metrics.PinsTotal.WithLabelValues("image").Inc()
	} else {
		cid, err := s.deps.Publisher.PinJSON(record, filename)
		if err != nil {
			return failed(filename, err)
		}
		analysisCID = cid
	}
	metrics.PinsTotal.WithLabelValues("analysis").Inc()

	var (
		receipt *chain.Receipt
		err     error
	)
	if s.cfg.SubmissionProfile == config.ProfileStructured {
		meta := chain.EnhanceMetadata(s.deps.Prompter, record)
		meta.IPFSCID = analysisCID
		receipt, err = s.deps.Submitter.SubmitStructured(ctx, meta)
	} else {
		description := chain.SimpleDescription(record, filename, analysisCID)
		receipt, err = s.deps.Submitter.SubmitSimple(ctx, description)
	}
	if err != nil {
		entry := models.ProcessedFileEntry{
			Filename:  filename,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Status:    models.StatusFailed,
			IPFSCID:   analysisCID,
		}
		if lerr := s.deps.Ledger.Record(entry); lerr != nil {
			log.Errorf("Failed to record ledger entry for %s: %v", filename, lerr)
		}
		return failed(filename, fmt.Errorf("submit proposal: %w", err))
	}

	entry := models.ProcessedFileEntry{
		Filename:   filename,
		ProposalID: receipt.ProposalID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Status:     models.StatusSuccess,
		TxHash:     receipt.TxHash,
		IPFSCID:    analysisCID,
	}
	if err := s.deps.Ledger.Record(entry); err != nil {
		// The proposal exists on chain; surface the bookkeeping
		// failure loudly but report the submission as succeeded.
		log.Errorf("Proposal %s created but ledger write failed: %v", receipt.ProposalID, err)
	}
	metrics.ProposalsSubmittedTotal.Inc()

	if s.deps.Broker != nil {
		if err := s.deps.Broker.Publish(record); err != nil {
			log.Warnf("Failed to publish record for %s: %v", filename, err)
		}
	}

	log.Infof("Proposal created for %s: %s (tx %s)", filename, receipt.ProposalID, receipt.TxHash)
	return Result{
		Filename:   filename,
		Success:    true,
		ProposalID: receipt.ProposalID,
		TxHash:     receipt.TxHash,
		IPFSCID:    analysisCID,
		Message:    fmt.Sprintf("Proposal created successfully\nID: %s\nIPFS: %s\nTransaction: %s", receipt.ProposalID, analysisCID, receipt.TxHash),
	}
}

func (s *Service) writeRecord(jobID string, record *models.CanonicalAnalysisRecord) error {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	path := filepath.Join(s.cfg.OutputDir, jobID+"-analysis.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	log.Infof("Analysis written to %s", path)
	return nil
}

func listDir(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !keep(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func failed(filename string, err error) Result {
	log.Errorf("Error processing file %s: %v", filename, err)
	return Result{Filename: filename, Message: err.Error()}
}

func logSummary(kind string, results []Result) {
	created, skipped, failures := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Success:
			created++
		case r.Skipped:
			skipped++
		default:
			failures++
		}
	}
	log.Infof("Batch complete (%s): %d proposals created, %d skipped, %d failed", kind, created, skipped, failures)
}
