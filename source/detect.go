package source

import (
	"context"
	"image"
	"io"

	"github.com/justapithecus/datablast/log"
)

// Detector finds QR payloads in one video frame.
type Detector interface {
	DetectSymbols(img image.Image) ([]string, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(img image.Image) ([]string, error)

// DetectSymbols implements Detector.
func (f DetectorFunc) DetectSymbols(img image.Image) ([]string, error) {
	return f(img)
}

// DetectedSource runs a Detector over a stream of frames and yields every
// detected string. Frames that fail detection are logged and skipped.
type DetectedSource struct {
	frames   <-chan image.Image
	detector Detector
	logger   *log.Logger

	queued []string
	frame  int64
}

// NewDetectedSource reads frames until the channel is closed.
func NewDetectedSource(frames <-chan image.Image, detector Detector, logger *log.Logger) *DetectedSource {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DetectedSource{frames: frames, detector: detector, logger: logger}
}

// Next implements Source.
func (s *DetectedSource) Next(ctx context.Context) (string, error) {
	for len(s.queued) == 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case img, ok := <-s.frames:
			if !ok {
				return "", io.EOF
			}
			s.frame++
			found, err := s.detector.DetectSymbols(img)
			if err != nil {
				s.logger.Warn("frame detection failed", map[string]any{
					"frame": s.frame,
					"error": err.Error(),
				})
				continue
			}
			s.queued = append(s.queued, found...)
		}
	}
	next := s.queued[0]
	s.queued = s.queued[1:]
	return next, nil
}

var _ Source = (*DetectedSource)(nil)
