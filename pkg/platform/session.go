package platform

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tinyland-inc/keyclaw/pkg/config"
	"github.com/tinyland-inc/keyclaw/pkg/logger"
)

const (
	authBlobFile = "auth.json"
	sentryFile   = "sentry.bin"
)

// Session holds one authenticated storefront session. The underlying
// transport is a single logical connection; callers must not issue
// concurrent redemption requests (the activator serializes them).
type Session struct {
	cfg      config.PlatformConfig
	cacheDir string

	http  *resty.Client
	ready atomic.Bool

	mu        sync.Mutex
	sessionID string
	cookies   []*http.Cookie
}

func NewSession(cfg config.PlatformConfig, cacheDir string) *Session {
	return &Session{
		cfg:      cfg,
		cacheDir: cacheDir,
	}
}

// Connect prepares the HTTP client and restores a persisted session when
// one exists, so re-authentication is skipped on restart.
func (s *Session) Connect(ctx context.Context) error {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return fmt.Errorf("platform cache dir: %w", err)
	}

	s.http = resty.New().
		SetBaseURL(s.cfg.StoreURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "keyclaw")

	if err := s.loadAuthBlob(); err == nil && s.sessionID != "" {
		s.http.SetCookies(s.cookies)
		s.ready.Store(true)
		logger.InfoCF("platform", "Restored persisted session", map[string]any{
			"account": s.cfg.AccountName,
		})
	}
	return nil
}

// Ready reports whether the session is authenticated and may issue
// redemption requests.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

type logonResponse struct {
	Result    int    `json:"result"`
	SessionID string `json:"session_id"`
	Sentry    string `json:"sentry,omitempty"`
}

// LogOn authenticates with the configured credentials. guardCode may be
// empty; when the account requires machine auth the returned *LogonError
// reports GuardRequired and the caller decides how to obtain a code.
// A sentry blob delivered with the response is persisted and its SHA-1
// fingerprint sent on subsequent logons, which skips the guard prompt.
func (s *Session) LogOn(ctx context.Context, guardCode string) error {
	form := map[string]string{
		"username": s.cfg.AccountName,
		"password": s.cfg.Password,
	}
	if guardCode != "" {
		form["guardcode"] = guardCode
	}
	if fp := s.sentryFingerprint(); fp != "" {
		form["machine_auth_fingerprint"] = fp
	}

	var out logonResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post("/login/dologin")
	if err != nil {
		return fmt.Errorf("logon request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("logon request: status %s", resp.Status())
	}

	if out.Result != ResultOK {
		return &LogonError{Result: out.Result}
	}

	s.mu.Lock()
	s.sessionID = out.SessionID
	s.cookies = resp.Cookies()
	s.mu.Unlock()
	s.http.SetCookies(resp.Cookies())

	if out.Sentry != "" {
		if err := s.saveSentry(out.Sentry); err != nil {
			logger.WarnCF("platform", "Failed to persist sentry", map[string]any{
				"error": err.Error(),
			})
		}
	}
	if err := s.saveAuthBlob(); err != nil {
		logger.WarnCF("platform", "Failed to persist session", map[string]any{
			"error": err.Error(),
		})
	}

	s.ready.Store(true)
	logger.InfoCF("platform", "Logged on", map[string]any{
		"account": s.cfg.AccountName,
	})
	return nil
}

type redeemResponse struct {
	Success int          `json:"success"`
	Details int          `json:"purchase_result_details"`
	Receipt *receiptInfo `json:"purchase_receipt_info"`
}

type receiptInfo struct {
	LineItems []lineItem `json:"line_items"`
}

type lineItem struct {
	Description string `json:"line_item_description"`
}

// RedeemKey submits one product code for redemption. Exactly one wire
// request is issued per call; the caller owns any retry decision.
func (s *Session) RedeemKey(ctx context.Context, code string) (*RedeemResult, error) {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	var out redeemResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"product_key": code,
			"sessionid":   sessionID,
		}).
		SetResult(&out).
		Post("/account/ajaxregisterkey/")
	if err != nil {
		return nil, fmt.Errorf("redeem request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("redeem request: status %s", resp.Status())
	}

	result := &RedeemResult{
		Result: out.Success,
		Detail: out.Details,
	}
	if out.Receipt != nil {
		for _, li := range out.Receipt.LineItems {
			result.Products = append(result.Products, li.Description)
		}
	}
	return result, nil
}

type authBlob struct {
	Account   string       `json:"account"`
	SessionID string       `json:"session_id"`
	Cookies   []blobCookie `json:"cookies"`
}

type blobCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Session) authBlobPath() string { return filepath.Join(s.cacheDir, authBlobFile) }
func (s *Session) sentryPath() string   { return filepath.Join(s.cacheDir, sentryFile) }

func (s *Session) saveAuthBlob() error {
	s.mu.Lock()
	blob := authBlob{
		Account:   s.cfg.AccountName,
		SessionID: s.sessionID,
	}
	for _, c := range s.cookies {
		blob.Cookies = append(blob.Cookies, blobCookie{Name: c.Name, Value: c.Value})
	}
	s.mu.Unlock()

	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return os.WriteFile(s.authBlobPath(), data, 0o600)
}

func (s *Session) loadAuthBlob() error {
	data, err := os.ReadFile(s.authBlobPath())
	if err != nil {
		return err
	}
	var blob authBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return err
	}
	if blob.Account != s.cfg.AccountName {
		return fmt.Errorf("persisted session belongs to %q", blob.Account)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = blob.SessionID
	s.cookies = s.cookies[:0]
	for _, c := range blob.Cookies {
		s.cookies = append(s.cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return nil
}

func (s *Session) saveSentry(encoded string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode sentry: %w", err)
	}
	return os.WriteFile(s.sentryPath(), raw, 0o600)
}

// sentryFingerprint returns the hex SHA-1 of the persisted sentry blob, or
// "" when none exists. SHA-1 is what the storefront's handshake demands.
func (s *Session) sentryFingerprint() string {
	raw, err := os.ReadFile(s.sentryPath())
	if err != nil {
		return ""
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}
