package filters

import (
	"regexp"
	"strings"

	"github.com/tinyland-inc/keyclaw/pkg/bus"
)

// keyPattern matches a maximal run of at least five characters drawn from
// uppercase letters, digits, spaces and dash/em-dash. The leftmost run wins;
// whether a second distinct key in the same message should also be taken is
// unconfirmed against real channel data.
var keyPattern = regexp.MustCompile(`[A-Z0-9 \-—]{5,}`)

// TextFilter extracts candidate keys from the message body of new posts on
// one channel. It suppresses a repeat when the body is byte-identical to the
// last body it matched, so an edited repost of the same text is not
// resubmitted.
type TextFilter struct {
	channelID int64
	lastBody  string
}

func NewTextFilter(channelID int64) *TextFilter {
	return &TextFilter{channelID: channelID}
}

func (f *TextFilter) ChannelID() int64 { return f.channelID }

func (f *TextFilter) Examine(ev bus.InboundEvent) (Extraction, bool) {
	if ev.Kind != bus.EventChannelPost || ev.ChannelID != f.channelID {
		return Extraction{}, false
	}
	if ev.Text == "" || ev.Text == f.lastBody {
		return Extraction{}, false
	}

	match := strings.TrimSpace(keyPattern.FindString(ev.Text))
	if match == "" {
		return Extraction{}, false
	}

	f.lastBody = ev.Text
	return Extraction{
		Kind:      KindText,
		ChannelID: f.channelID,
		Text:      match,
	}, true
}
