package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/geo/s2"
	"github.com/rwcarlsen/goexif/exif"

	_ "github.com/gen2brain/heic" // registers HEIC with image.Decode

	"impact-agent/models"
)

var (
	// ErrUnreadableMedia means the file could not be opened or decoded
	// at all. Absence of individual metadata tags is not an error.
	ErrUnreadableMedia = errors.New("unreadable media")

	// ErrTranscode means a camera-native format could not be converted
	// to JPEG. Unlike the size reducer, transcoding failure is fatal.
	ErrTranscode = errors.New("transcode failed")
)

// Options bounds the normalizer. Zero values fall back to the
// defaults used by the original pipeline.
type Options struct {
	MaxBytes         int
	StartQuality     int
	MinQuality       int
	QualityStep      int
	MaxDimension     int // downscale bound for plain JPEG sources
	MaxHeicDimension int // tighter bound for transcoded HEIC sources
}

func (o Options) withDefaults() Options {
	if o.MaxBytes == 0 {
		o.MaxBytes = 5 * 1024 * 1024
	}
	if o.StartQuality == 0 {
		o.StartQuality = 80
	}
	if o.MinQuality == 0 {
		o.MinQuality = 30
	}
	if o.QualityStep == 0 {
		o.QualityStep = 10
	}
	if o.MaxDimension == 0 {
		o.MaxDimension = 2000
	}
	if o.MaxHeicDimension == 0 {
		o.MaxHeicDimension = 1600
	}
	return o
}

// Extraction is the extractor output: capture metadata, the normalized
// JPEG buffer, and the keccak-256 hash of that buffer. The hash is
// computed over the final bytes, after any transcode or resize, and is
// the identity used for dedup and on-chain evidence linkage.
type Extraction struct {
	Metadata models.CaptureMetadata
	Buffer   []byte
	Hash     string
}

// Extractor reads media files and produces normalized analysis inputs.
type Extractor struct {
	opts Options
}

func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts.withDefaults()}
}

// Extract reads the media file at path and returns capture metadata,
// the normalized buffer, and its content hash.
func (e *Extractor) Extract(path string) (*Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableMedia, path, err)
	}

	// EXIF parsing is lenient: any individual tag may be missing.
	meta := parseCaptureMetadata(raw)

	buf := raw
	isHeic := strings.EqualFold(filepath.Ext(path), ".heic")
	if isHeic {
		buf, err = transcodeToJPEG(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTranscode, path, err)
		}
		log.Infof("Transcoded HEIC to JPEG: %d -> %d bytes", len(raw), len(buf))
	}

	maxDim := e.opts.MaxDimension
	if isHeic {
		maxDim = e.opts.MaxHeicDimension
	}
	buf = e.reduceToLimit(buf, maxDim)

	if meta.Resolution == "Unknown" {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(buf)); err == nil {
			meta.Resolution = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
		}
	}

	return &Extraction{
		Metadata: meta,
		Buffer:   buf,
		Hash:     crypto.Keccak256Hash(buf).Hex(),
	}, nil
}

// transcodeToJPEG decodes a camera-native buffer and re-encodes it as
// a standard JPEG.
func transcodeToJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return out.Bytes(), nil
}

// parseCaptureMetadata extracts timestamp, camera, resolution and GPS
// coordinates from EXIF data. Every tag is optional; the timestamp
// falls back to now.
func parseCaptureMetadata(data []byte) models.CaptureMetadata {
	meta := models.CaptureMetadata{
		Timestamp:  time.Now().UTC(),
		Camera:     "Unknown",
		Resolution: "Unknown",
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	if ts, err := x.DateTime(); err == nil {
		meta.Timestamp = ts.UTC()
	}

	make := tagString(x, exif.Make)
	model := tagString(x, exif.Model)
	if make != "" && model != "" {
		meta.Camera = make + " " + model
	} else if model != "" {
		meta.Camera = model
	}

	if w, h := tagInt(x, exif.PixelXDimension), tagInt(x, exif.PixelYDimension); w > 0 && h > 0 {
		meta.Resolution = fmt.Sprintf("%dx%d", w, h)
	}

	meta.Location = parseGPS(x)
	return meta
}

// parseGPS reads coordinates, preferring the computed top-level
// lat/lng and falling back to the raw GPS IFD tags.
func parseGPS(x *exif.Exif) *models.Coordinates {
	lat, lng, err := x.LatLong()
	if err != nil {
		lat, lng, err = rawGPSTags(x)
		if err != nil {
			return nil
		}
	}
	if !s2.LatLngFromDegrees(lat, lng).IsValid() || (lat == 0 && lng == 0) {
		return nil
	}
	return &models.Coordinates{Lat: lat, Lng: lng}
}

// rawGPSTags decodes the degree/minute/second rationals directly from
// the GPS sub-IFD for files whose computed LatLong is unavailable.
func rawGPSTags(x *exif.Exif) (float64, float64, error) {
	lat, err := dmsToDegrees(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	if err != nil {
		return 0, 0, err
	}
	lng, err := dmsToDegrees(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func dmsToDegrees(x *exif.Exif, field, refField exif.FieldName, negRef string) (float64, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, err
	}
	var deg float64
	div := 1.0
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, fmt.Errorf("bad GPS rational at %d", i)
		}
		deg += float64(num) / float64(den) / div
		div *= 60
	}
	if ref, err := x.Get(refField); err == nil {
		if s, err := ref.StringVal(); err == nil && s == negRef {
			deg = -deg
		}
	}
	return deg, nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func tagInt(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}
