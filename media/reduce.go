package media

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/apex/log"
	"golang.org/x/image/draw"
)

// reduceToLimit shrinks a JPEG buffer under the configured byte limit
// by stepping the encoder quality down and, if that is not enough,
// downscaling dimensions. Best effort: when the quality floor is
// reached the smallest achieved buffer is returned rather than an
// error, so pathological inputs fail open.
func (e *Extractor) reduceToLimit(data []byte, maxDim int) []byte {
	if len(data) <= e.opts.MaxBytes {
		return data
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warnf("Oversized buffer could not be decoded for reduction, proceeding as-is: %v", err)
		return data
	}

	log.Infof("Image exceeds %d bytes (%d), reducing...", e.opts.MaxBytes, len(data))

	best := data
	quality := e.opts.StartQuality
	for {
		encoded, err := encodeJPEG(img, quality)
		if err != nil {
			log.Warnf("JPEG encode at quality %d failed: %v", quality, err)
			return best
		}
		if len(encoded) < len(best) {
			best = encoded
		}
		if len(encoded) <= e.opts.MaxBytes {
			return encoded
		}
		if quality-e.opts.QualityStep < e.opts.MinQuality {
			break
		}
		quality -= e.opts.QualityStep
	}

	// Quality floor reached while still oversized: downscale bounded
	// to maxDim and retry at the floor quality.
	scaled := scaleToFit(img, maxDim)
	encoded, err := encodeJPEG(scaled, e.opts.MinQuality)
	if err != nil {
		log.Warnf("JPEG encode after downscale failed: %v", err)
		return best
	}
	if len(encoded) < len(best) {
		best = encoded
	}
	if len(best) > e.opts.MaxBytes {
		log.Warnf("Size reduction floor reached, proceeding with %d bytes (limit %d)",
			len(best), e.opts.MaxBytes)
	}
	return best
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scaleToFit downscales img so both dimensions fit within maxDim,
// preserving aspect ratio. Images already within bounds are returned
// unchanged.
func scaleToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if s := float64(maxDim) / float64(h); s < scale {
		scale = s
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw > maxDim {
		nw = maxDim
	}
	if nh > maxDim {
		nh = maxDim
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
