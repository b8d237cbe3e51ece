package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with op", New(InvalidInput, "tessellate", "deflection must be positive"),
			"tessellate: [INVALID_INPUT] deflection must be positive"},
		{"without op", New(NoMatch, "", "seed rejected"),
			"[NO_MATCH] seed rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("mesher not done")
	err := Wrap(KernelFailure, "tessellate", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if !Is(err, KernelFailure) {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KernelFailure)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KernelFailure, "op", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestKindOfThroughFmtWrap(t *testing.T) {
	inner := New(InvalidInput, "assembly", "tube length is 0")
	outer := fmt.Errorf("session: build: %w", inner)
	if KindOf(outer) != InvalidInput {
		t.Errorf("KindOf = %q, want %q", KindOf(outer), InvalidInput)
	}
	if Is(errors.New("plain"), InvalidInput) {
		t.Error("unclassified error should not match a kind")
	}
	if Is(nil, InvalidInput) {
		t.Error("nil error should not match a kind")
	}
}
