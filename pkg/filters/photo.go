package filters

import (
	"github.com/google/uuid"

	"github.com/tinyland-inc/keyclaw/pkg/bus"
)

// PhotoFilter picks up caption-less photo posts on one channel and returns
// a locator for the largest size variant. Variants are assumed to arrive in
// ascending size order, so the last entry is taken.
type PhotoFilter struct {
	channelID int64
}

func NewPhotoFilter(channelID int64) *PhotoFilter {
	return &PhotoFilter{channelID: channelID}
}

func (f *PhotoFilter) ChannelID() int64 { return f.channelID }

func (f *PhotoFilter) Examine(ev bus.InboundEvent) (Extraction, bool) {
	if ev.Kind != bus.EventChannelPost || ev.ChannelID != f.channelID {
		return Extraction{}, false
	}
	if !ev.HasPhoto() || ev.Caption != "" {
		return Extraction{}, false
	}

	variant := ev.Photo[len(ev.Photo)-1]

	mediaID := variant.FileUniqueID
	if mediaID == "" {
		mediaID = uuid.New().String()
	}

	return Extraction{
		Kind:      KindImage,
		ChannelID: f.channelID,
		Image: ImageRef{
			FileID: variant.FileID,
			Size:   variant.Size,
		},
		MediaID: mediaID,
	}, true
}
