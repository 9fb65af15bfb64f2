package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

func TestUpstreamError_ReadModelSuffix(t *testing.T) {
	err := domain.NewReadModelError(errors.New("timeout"))

	if got := err.Error(); got != "timeout (from read-model)" {
		t.Errorf("expected %q, got %q", "timeout (from read-model)", got)
	}
	if !domain.IsUpstream(err) {
		t.Error("expected upstream error")
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := domain.NewEventStoreError(fmt.Errorf("append event: %w", cause))

	if !errors.Is(err, cause) {
		t.Error("expected unwrap to reach the cause")
	}
	if got := err.Error(); got != "append event: connection refused (from event-store)" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestIsUpstream_PlainErrors(t *testing.T) {
	if domain.IsUpstream(domain.ErrAmountMismatch) {
		t.Error("domain rejection is not an upstream error")
	}
	if domain.IsUpstream(nil) {
		t.Error("nil is not an upstream error")
	}
}

// Тексты ошибок — часть контракта ответа, их меняют только вместе с потребителями.
func TestErrorMessagesAreStable(t *testing.T) {
	cases := map[error]string{
		domain.ErrMissingOrderParams: "missing mandatory parameter 'order_id' and/or 'amount'",
		domain.ErrMissingEntityID:    "missing mandatory parameter 'entity_id'",
		domain.ErrAmountMismatch:     "amount is not accurate",
		domain.ErrBillingNotFound:    "could not find billing",
	}
	for err, want := range cases {
		if err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}
	}
}
