package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindFatal(t *testing.T) {
	cases := []struct {
		kind  Kind
		fatal bool
	}{
		{KindInput, true},
		{KindEncodeUnavailable, true},
		{KindEncodeFailed, true},
		{KindSynthesisDegraded, false},
		{KindPerturbationSkipped, false},
	}

	for _, tc := range cases {
		if got := tc.kind.Fatal(); got != tc.fatal {
			t.Errorf("%s.Fatal() = %v, want %v", tc.kind, got, tc.fatal)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	e := newError(KindEncodeFailed, "/work/job-abc", nil, "encode of %s failed", "final.mp4")

	msg := e.Error()
	if !strings.Contains(msg, "encode_failed") {
		t.Errorf("message missing kind: %q", msg)
	}
	if !strings.Contains(msg, "/work/job-abc") {
		t.Errorf("message missing artifact path: %q", msg)
	}

	plain := newError(KindInput, "", nil, "source missing")
	if strings.Contains(plain.Error(), "artifacts") {
		t.Errorf("artifact clause should be absent: %q", plain.Error())
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	e := newError(KindEncodeFailed, "", cause, "encode failed")

	if !errors.Is(e, cause) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
}

func TestAsError(t *testing.T) {
	inner := newError(KindInput, "", nil, "bad source")
	wrapped := fmt.Errorf("job 1: %w", inner)

	got, ok := AsError(wrapped)
	if !ok {
		t.Fatal("AsError should find the structured error through wrapping")
	}
	if got.Kind != KindInput {
		t.Errorf("Kind = %s, want %s", got.Kind, KindInput)
	}

	if _, ok := AsError(fmt.Errorf("plain")); ok {
		t.Error("AsError should reject plain errors")
	}
}
