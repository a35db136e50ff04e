// Package telegram is the messaging session provider. It long-polls the
// Bot API, converts channel updates into bus events and serves image
// fetches for the pipeline.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/keyclaw/pkg/bus"
	"github.com/tinyland-inc/keyclaw/pkg/config"
	"github.com/tinyland-inc/keyclaw/pkg/filters"
	"github.com/tinyland-inc/keyclaw/pkg/logger"
)

const offsetFile = "telegram_offset.json"

// ErrNotAuthorized is returned when the session is used before Connect
// succeeded.
var ErrNotAuthorized = errors.New("telegram session not authorized")

type Session struct {
	cfg      config.TelegramConfig
	bus      *bus.EventBus
	cacheDir string

	bot        *telego.Bot
	http       *resty.Client
	authorized atomic.Bool
	offset     int
}

func NewSession(cfg config.TelegramConfig, eb *bus.EventBus, cacheDir string) *Session {
	return &Session{
		cfg:      cfg,
		bus:      eb,
		cacheDir: cacheDir,
		http:     resty.New().SetTimeout(60 * time.Second),
	}
}

// Connect creates the bot client and verifies the token. The persisted
// update offset is restored so a restart does not replay already-processed
// posts.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.Token == "" {
		return errors.New("telegram token not configured")
	}

	bot, err := telego.NewBot(s.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram auth check: %w", err)
	}

	s.bot = bot
	s.loadOffset()
	s.authorized.Store(true)

	logger.InfoCF("telegram", "Session authorized", map[string]any{
		"bot":    me.Username,
		"offset": s.offset,
	})
	return nil
}

// IsAuthorized reports whether Connect completed successfully.
func (s *Session) IsAuthorized() bool {
	return s.authorized.Load()
}

// Run long-polls for updates and publishes them to the bus until ctx is
// canceled. Events are delivered serially in arrival order.
func (s *Session) Run(ctx context.Context) error {
	if !s.IsAuthorized() {
		return ErrNotAuthorized
	}

	for ctx.Err() == nil {
		updates, err := s.bot.GetUpdates(ctx, &telego.GetUpdatesParams{
			Offset:         s.offset,
			Timeout:        25,
			AllowedUpdates: []string{"channel_post", "edited_channel_post"},
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.WarnCF("telegram", "Poll failed", map[string]any{
				"error": err.Error(),
			})
			time.Sleep(3 * time.Second)
			continue
		}

		for _, u := range updates {
			s.offset = u.UpdateID + 1
			ev, ok := convertUpdate(u)
			if !ok {
				continue
			}
			if err := s.bus.Publish(ctx, ev); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			s.saveOffset()
		}
	}
	return ctx.Err()
}

// Ping issues a no-op API call to keep the session alive.
func (s *Session) Ping(ctx context.Context) error {
	if !s.IsAuthorized() {
		return ErrNotAuthorized
	}
	_, err := s.bot.GetMe(ctx)
	return err
}

// FetchImage resolves the file locator and downloads the image bytes.
func (s *Session) FetchImage(ctx context.Context, ref filters.ImageRef) ([]byte, error) {
	if !s.IsAuthorized() {
		return nil, ErrNotAuthorized
	}

	file, err := s.bot.GetFile(ctx, &telego.GetFileParams{FileID: ref.FileID})
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", ref.FileID, err)
	}

	resp, err := s.http.R().
		SetContext(ctx).
		Get(s.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", ref.FileID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download file %s: status %s", ref.FileID, resp.Status())
	}
	return resp.Body(), nil
}

func convertUpdate(u telego.Update) (bus.InboundEvent, bool) {
	var (
		msg  *telego.Message
		kind bus.EventKind
	)
	switch {
	case u.ChannelPost != nil:
		msg, kind = u.ChannelPost, bus.EventChannelPost
	case u.EditedChannelPost != nil:
		msg, kind = u.EditedChannelPost, bus.EventEditedPost
	default:
		return bus.InboundEvent{}, false
	}

	ev := bus.InboundEvent{
		Kind:      kind,
		ChannelID: msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Caption:   msg.Caption,
	}
	for _, p := range msg.Photo {
		ev.Photo = append(ev.Photo, bus.PhotoVariant{
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			Width:        p.Width,
			Height:       p.Height,
			Size:         p.FileSize,
		})
	}
	return ev, true
}

func (s *Session) offsetPath() string {
	return filepath.Join(s.cacheDir, offsetFile)
}

func (s *Session) loadOffset() {
	data, err := os.ReadFile(s.offsetPath())
	if err != nil {
		return
	}
	var state struct {
		Offset int `json:"offset"`
	}
	if err := json.Unmarshal(data, &state); err == nil {
		s.offset = state.Offset
	}
}

func (s *Session) saveOffset() {
	state := struct {
		Offset int `json:"offset"`
	}{Offset: s.offset}
	data, _ := json.Marshal(state)
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		logger.WarnCF("telegram", "Failed to persist offset", map[string]any{
			"error": err.Error(),
		})
		return
	}
	if err := os.WriteFile(s.offsetPath(), data, 0o644); err != nil {
		logger.WarnCF("telegram", "Failed to persist offset", map[string]any{
			"error": err.Error(),
		})
	}
}
