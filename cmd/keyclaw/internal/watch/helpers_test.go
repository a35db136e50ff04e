package watch

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestSessionExitError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "canceled", err: context.Canceled, wantNil: true},
		{name: "wrapped canceled", err: fmt.Errorf("poll: %w", context.Canceled), wantNil: true},
		{name: "real failure", err: errors.New("unauthorized"), wantNil: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sessionExitError(tt.err)
			if tt.wantNil && got != nil {
				t.Errorf("expected nil, got %v", got)
			}
			if !tt.wantNil && got == nil {
				t.Error("expected error to propagate, got nil")
			}
		})
	}
}
