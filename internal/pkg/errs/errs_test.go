package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNewErrorUsesTemplate(t *testing.T) {
	err := NewError(ErrRecipientNotFound)

	if err.Code != ErrRecipientNotFound {
		t.Fatalf("code = %d, want %d", err.Code, ErrRecipientNotFound)
	}
	if err.Kind != KindRecipientNotFound {
		t.Fatalf("kind = %q, want %q", err.Kind, KindRecipientNotFound)
	}
	if err.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", err.Status, http.StatusNotFound)
	}
}

func TestNewErrorFormatsDetails(t *testing.T) {
	err := NewError(ErrFileSizeTooLarge, 1024)

	if !strings.Contains(err.Message, "1024") {
		t.Fatalf("message = %q, want formatted limit", err.Message)
	}
	if err.Kind != KindPayloadTooLarge {
		t.Fatalf("kind = %q, want %q", err.Kind, KindPayloadTooLarge)
	}
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	_ = NewError(ErrUsernameTooLong, 99)
	again := NewError(ErrUsernameTooLong, 32)

	if strings.Contains(again.Message, "99") {
		t.Fatalf("message = %q, template was mutated", again.Message)
	}
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(424242)

	if err.Code != ErrUnknown {
		t.Fatalf("code = %d, want %d", err.Code, ErrUnknown)
	}
	if err.Kind != KindInternal {
		t.Fatalf("kind = %q, want %q", err.Kind, KindInternal)
	}
}

func TestAsWrapsPlainErrors(t *testing.T) {
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}

	plain := As(errors.New("boom"))
	if plain.Code != ErrUnknown {
		t.Fatalf("code = %d, want %d", plain.Code, ErrUnknown)
	}

	wrapped := fmt.Errorf("route: %w", NewError(ErrSelfRecipient))
	got := As(wrapped)
	if got.Code != ErrSelfRecipient {
		t.Fatalf("code = %d, want %d", got.Code, ErrSelfRecipient)
	}
	if !IsKind(wrapped, KindValidation) {
		t.Fatal("expected wrapped error to be a validation error")
	}
}
