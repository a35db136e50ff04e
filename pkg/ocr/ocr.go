// Package ocr wraps the tesseract binary for text recognition on saved
// screenshots.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrTesseractNotAvailable is returned when the tesseract binary is not
// installed.
var ErrTesseractNotAvailable = errors.New("tesseract not available")

// Client shells out to tesseract for each recognition request.
type Client struct {
	binary   string
	language string
}

func NewClient(language string) *Client {
	if language == "" {
		language = "eng"
	}
	return &Client{binary: "tesseract", language: language}
}

// Recognize runs OCR over the image at path and returns the recognized
// text with surrounding whitespace trimmed.
func (c *Client) Recognize(ctx context.Context, path string) (string, error) {
	bin, err := exec.LookPath(c.binary)
	if errors.Is(err, exec.ErrNotFound) {
		return "", ErrTesseractNotAvailable
	}
	if err != nil {
		return "", fmt.Errorf("tesseract lookup: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, path, "stdout", "-l", c.language)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed for %s: %w\n%s", path, err, stderr.String())
	}

	return strings.TrimSpace(string(out)), nil
}
