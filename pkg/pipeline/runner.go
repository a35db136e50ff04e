// Package pipeline drives a filter extraction through normalization, OCR
// when needed, and activation. Every run is isolated: a failure at any
// stage ends that run with a log line and nothing else.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tinyland-inc/keyclaw/pkg/filters"
	"github.com/tinyland-inc/keyclaw/pkg/logger"
)

// ImageFetcher downloads image bytes from the messaging backend.
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref filters.ImageRef) ([]byte, error)
}

// Recognizer turns a saved image file into text.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Activator submits a normalized candidate key for redemption.
type Activator interface {
	Activate(ctx context.Context, key string) (string, error)
}

// Runner executes one pipeline instance per extraction.
type Runner struct {
	activator  Activator
	fetcher    ImageFetcher
	ocr        Recognizer
	scratchDir string
}

func NewRunner(activator Activator, fetcher ImageFetcher, ocr Recognizer, scratchDir string) *Runner {
	return &Runner{
		activator:  activator,
		fetcher:    fetcher,
		ocr:        ocr,
		scratchDir: scratchDir,
	}
}

// Run drives ex to an activation outcome. Errors never propagate: they are
// logged with the channel tag and the run ends.
func (r *Runner) Run(ctx context.Context, ex filters.Extraction) {
	tag := fmt.Sprintf("channel %d", ex.ChannelID)

	key, err := r.candidateKey(ctx, ex)
	if err != nil {
		logger.ErrorCF("pipeline", "Extraction failed", map[string]any{
			"channel": tag,
			"error":   err.Error(),
		})
		return
	}
	if key == "" {
		logger.DebugCF("pipeline", "No candidate key in extraction", map[string]any{
			"channel": tag,
			"kind":    string(ex.Kind),
		})
		return
	}

	activated, err := r.activator.Activate(ctx, key)
	if err != nil {
		logger.WarnCF("pipeline", "Activation failed", map[string]any{
			"channel": tag,
			"key":     key,
			"error":   err.Error(),
		})
		return
	}

	logger.InfoCF("pipeline", "Activation succeeded", map[string]any{
		"channel": tag,
		"key":     activated,
	})
}

func (r *Runner) candidateKey(ctx context.Context, ex filters.Extraction) (string, error) {
	switch ex.Kind {
	case filters.KindText:
		return Normalize(ex.Text), nil
	case filters.KindImage:
		return r.keyFromImage(ctx, ex)
	default:
		return "", fmt.Errorf("unknown extraction kind %q", ex.Kind)
	}
}

// keyFromImage fetches the image, persists it under the scratch dir named
// by the media id (kept afterwards so OCR misses can be inspected), runs
// OCR and normalizes the recognized text.
func (r *Runner) keyFromImage(ctx context.Context, ex filters.Extraction) (string, error) {
	data, err := r.fetcher.FetchImage(ctx, ex.Image)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", ex.MediaID, err)
	}

	if err := os.MkdirAll(r.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	path := filepath.Join(r.scratchDir, ex.MediaID+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save image %s: %w", ex.MediaID, err)
	}
	logger.DebugCF("pipeline", "Image saved", map[string]any{
		"media_id": ex.MediaID,
		"path":     path,
		"bytes":    len(data),
	})

	text, err := r.ocr.Recognize(ctx, path)
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w", ex.MediaID, err)
	}

	return Normalize(text), nil
}
