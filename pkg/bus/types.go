package bus

// EventKind tags the update kind carried by an InboundEvent.
type EventKind string

const (
	// EventChannelPost is a new message posted to a broadcast channel.
	EventChannelPost EventKind = "channel_post"
	// EventEditedPost is an edit of an existing channel message.
	EventEditedPost EventKind = "edited_post"
)

// PhotoVariant is one size rendition of a posted photo. The messaging
// backend lists variants in ascending size order.
type PhotoVariant struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int    `json:"size"`
}

// InboundEvent is one update received from the messaging session. It is
// owned transiently by the dispatcher for the duration of one dispatch
// and never persisted.
type InboundEvent struct {
	Kind      EventKind      `json:"kind"`
	ChannelID int64          `json:"channel_id"`
	MessageID int            `json:"message_id"`
	Text      string         `json:"text,omitempty"`
	Caption   string         `json:"caption,omitempty"`
	Photo     []PhotoVariant `json:"photo,omitempty"`
}

// HasPhoto reports whether the event carries at least one photo variant.
func (e *InboundEvent) HasPhoto() bool {
	return len(e.Photo) > 0
}
