// Package activator translates candidate key strings into storefront
// redemption outcomes.
package activator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tinyland-inc/keyclaw/pkg/logger"
	"github.com/tinyland-inc/keyclaw/pkg/platform"
)

// Reason classifies the outcome of a failed activation.
type Reason string

const (
	ReasonNotInitialized   Reason = "NOT_INITIALIZED"
	ReasonAlreadyOwned     Reason = "ALREADY_OWNED"
	ReasonInvalid          Reason = "INVALID"
	ReasonAlreadyActivated Reason = "ALREADY_ACTIVATED"
	ReasonFailed           Reason = "ACTIVATION_FAILED"
)

// ActivationError reports why a key could not be redeemed. Detail carries
// the storefront's secondary reason code when one was returned.
type ActivationError struct {
	Key    string
	Reason Reason
	Detail int
}

func (e *ActivationError) Error() string {
	if e.Detail != 0 {
		return fmt.Sprintf("activation of %s failed: %s (detail %d)", e.Key, e.Reason, e.Detail)
	}
	return fmt.Sprintf("activation of %s failed: %s", e.Key, e.Reason)
}

// Session is the slice of the platform session the activator needs.
type Session interface {
	Ready() bool
	RedeemKey(ctx context.Context, code string) (*platform.RedeemResult, error)
}

// Activator submits keys for redemption. The platform session rides a
// single logical connection, so at most one redemption request may be in
// flight at a time; the mutex makes that invariant explicit rather than
// trusting callers to serialize.
type Activator struct {
	session Session
	mu      sync.Mutex
}

func New(session Session) *Activator {
	return &Activator{session: session}
}

// Activate trims raw and submits it once, without retrying. The original
// casing goes on the wire; the returned key is upper-cased for display.
// It fails fast with ReasonNotInitialized when the session is not ready,
// issuing no network call.
func (a *Activator) Activate(ctx context.Context, raw string) (string, error) {
	key := strings.TrimSpace(raw)
	display := strings.ToUpper(key)

	if !a.session.Ready() {
		return "", &ActivationError{Key: display, Reason: ReasonNotInitialized}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	result, err := a.session.RedeemKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("redeem %s: %w", display, err)
	}

	if result.OK() {
		product := "unknown"
		if len(result.Products) > 0 {
			product = strings.Join(result.Products, ", ")
		}
		logger.InfoCF("activator", "Key activated", map[string]any{
			"key":     display,
			"product": product,
		})
		return display, nil
	}

	return "", &ActivationError{
		Key:    display,
		Reason: reasonForDetail(result.Detail),
		Detail: result.Detail,
	}
}

// reasonForDetail maps the storefront's detail codes onto the error
// taxonomy. Rate limiting (53) deliberately stays generic: it is logged
// and dropped, not retried.
func reasonForDetail(detail int) Reason {
	switch detail {
	case platform.DetailAlreadyOwned:
		return ReasonAlreadyOwned
	case platform.DetailInvalidKey:
		return ReasonInvalid
	case platform.DetailAlreadyActivated:
		return ReasonAlreadyActivated
	default:
		return ReasonFailed
	}
}
