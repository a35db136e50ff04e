package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinyland-inc/keyclaw/pkg/config"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s := NewSession(config.PlatformConfig{
		StoreURL:    server.URL,
		AccountName: "tester",
		Password:    "hunter2",
	}, t.TempDir())
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s, server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestLogOn_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/dologin", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "tester" || r.FormValue("password") != "hunter2" {
			writeJSON(w, map[string]any{"result": ResultInvalidPassword})
			return
		}
		writeJSON(w, map[string]any{"result": ResultOK, "session_id": "sess-1"})
	})

	s, _ := newTestSession(t, mux)
	if s.Ready() {
		t.Fatal("session must not be ready before logon")
	}
	if err := s.LogOn(context.Background(), ""); err != nil {
		t.Fatalf("logon: %v", err)
	}
	if !s.Ready() {
		t.Error("expected session to be ready after logon")
	}
	if _, err := os.Stat(filepath.Join(s.cacheDir, authBlobFile)); err != nil {
		t.Errorf("auth blob not persisted: %v", err)
	}
}

func TestLogOn_GuardCodeFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/dologin", func(w http.ResponseWriter, r *http.Request) {
		switch r.FormValue("guardcode") {
		case "":
			writeJSON(w, map[string]any{"result": ResultGuardRequired})
		case "ABCDE":
			sentry := base64.StdEncoding.EncodeToString([]byte("machine-auth-blob"))
			writeJSON(w, map[string]any{"result": ResultOK, "session_id": "sess-2", "sentry": sentry})
		default:
			writeJSON(w, map[string]any{"result": ResultInvalidGuardCode})
		}
	})

	s, _ := newTestSession(t, mux)

	err := s.LogOn(context.Background(), "")
	var le *LogonError
	if !errors.As(err, &le) || !le.GuardRequired() {
		t.Fatalf("expected guard-required logon error, got %v", err)
	}

	if err := s.LogOn(context.Background(), "ABCDE"); err != nil {
		t.Fatalf("guarded logon: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.cacheDir, sentryFile))
	if err != nil {
		t.Fatalf("sentry not persisted: %v", err)
	}
	if string(raw) != "machine-auth-blob" {
		t.Errorf("sentry content mismatch: %q", raw)
	}
	if s.sentryFingerprint() == "" {
		t.Error("expected a sentry fingerprint after persisting the blob")
	}
}

func TestLogOn_SendsSentryFingerprint(t *testing.T) {
	var gotFingerprint string
	mux := http.NewServeMux()
	mux.HandleFunc("/login/dologin", func(w http.ResponseWriter, r *http.Request) {
		gotFingerprint = r.FormValue("machine_auth_fingerprint")
		writeJSON(w, map[string]any{"result": ResultOK, "session_id": "sess-3"})
	})

	s, _ := newTestSession(t, mux)
	if err := os.WriteFile(s.sentryPath(), []byte("machine-auth-blob"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := s.LogOn(context.Background(), ""); err != nil {
		t.Fatalf("logon: %v", err)
	}
	if gotFingerprint != s.sentryFingerprint() {
		t.Errorf("fingerprint on the wire %q != persisted fingerprint %q", gotFingerprint, s.sentryFingerprint())
	}
	if len(gotFingerprint) != 40 {
		t.Errorf("expected hex SHA-1 fingerprint, got %q", gotFingerprint)
	}
}

func TestRedeemKey_DetailCodes(t *testing.T) {
	cases := []struct {
		detail int
	}{
		{DetailAlreadyOwned},
		{DetailInvalidKey},
		{DetailAlreadyActivated},
		{DetailRateLimited},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("detail_%d", tc.detail), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/login/dologin", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"result": ResultOK, "session_id": "sess"})
			})
			mux.HandleFunc("/account/ajaxregisterkey/", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"success": 2, "purchase_result_details": tc.detail})
			})

			s, _ := newTestSession(t, mux)
			if err := s.LogOn(context.Background(), ""); err != nil {
				t.Fatalf("logon: %v", err)
			}

			result, err := s.RedeemKey(context.Background(), "AB12C-DE34F")
			if err != nil {
				t.Fatalf("redeem: %v", err)
			}
			if result.OK() {
				t.Error("expected a failed redemption")
			}
			if result.Detail != tc.detail {
				t.Errorf("expected detail %d, got %d", tc.detail, result.Detail)
			}
		})
	}
}

func TestRedeemKey_SuccessWithReceipt(t *testing.T) {
	var gotKey, gotSessionID string
	mux := http.NewServeMux()
	mux.HandleFunc("/login/dologin", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"result": ResultOK, "session_id": "sess-9"})
	})
	mux.HandleFunc("/account/ajaxregisterkey/", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.FormValue("product_key")
		gotSessionID = r.FormValue("sessionid")
		writeJSON(w, map[string]any{
			"success": 1,
			"purchase_receipt_info": map[string]any{
				"line_items": []map[string]any{
					{"line_item_description": "Some Game"},
				},
			},
		})
	})

	s, _ := newTestSession(t, mux)
	if err := s.LogOn(context.Background(), ""); err != nil {
		t.Fatalf("logon: %v", err)
	}

	result, err := s.RedeemKey(context.Background(), "AB12C-DE34F")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !result.OK() {
		t.Fatal("expected a successful redemption")
	}
	if len(result.Products) != 1 || result.Products[0] != "Some Game" {
		t.Errorf("expected receipt products, got %v", result.Products)
	}
	if gotKey != "AB12C-DE34F" {
		t.Errorf("expected the key on the wire, got %q", gotKey)
	}
	if gotSessionID != "sess-9" {
		t.Errorf("expected the session id on the wire, got %q", gotSessionID)
	}
}

func TestConnect_RestoresPersistedSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/dologin", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"result": ResultOK, "session_id": "sess-10"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()
	cacheDir := t.TempDir()
	cfg := config.PlatformConfig{StoreURL: server.URL, AccountName: "tester", Password: "hunter2"}

	first := NewSession(cfg, cacheDir)
	if err := first.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := first.LogOn(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	second := NewSession(cfg, cacheDir)
	if err := second.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !second.Ready() {
		t.Error("expected restored session to be ready without logging on again")
	}
}
