// Package filters holds per-channel predicate/extractor pairs that decide
// whether an inbound event carries candidate key material.
package filters

import (
	"github.com/tinyland-inc/keyclaw/pkg/bus"
	"github.com/tinyland-inc/keyclaw/pkg/config"
)

// ExtractionKind tags what a filter pulled out of an event.
type ExtractionKind string

const (
	// KindText is a candidate key lifted directly from message text.
	KindText ExtractionKind = "text"
	// KindImage is a reference to a posted image that must be OCR'd.
	KindImage ExtractionKind = "image"
)

// ImageRef locates an image on the messaging backend. Opaque to everything
// but the messaging session.
type ImageRef struct {
	FileID string
	Size   int
}

// Extraction is the raw material a filter found in one event.
type Extraction struct {
	Kind      ExtractionKind
	ChannelID int64
	// Text is set for KindText extractions.
	Text string
	// Image and MediaID are set for KindImage extractions. MediaID is used
	// only to correlate log lines with saved image files.
	Image   ImageRef
	MediaID string
}

// Filter examines inbound events for one watched channel. Implementations
// may keep per-filter state (e.g. dedup) and are not safe for concurrent
// use; the dispatcher calls them from a single goroutine.
type Filter interface {
	ChannelID() int64
	Examine(ev bus.InboundEvent) (Extraction, bool)
}

// FromConfig builds the filter set for the configured channels.
func FromConfig(channels []config.ChannelConfig) []Filter {
	out := make([]Filter, 0, len(channels))
	for _, ch := range channels {
		switch ch.Mode {
		case config.FilterPhoto:
			out = append(out, NewPhotoFilter(ch.ID))
		default:
			out = append(out, NewTextFilter(ch.ID))
		}
	}
	return out
}
