package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfWrappedChain(t *testing.T) {
	base := New(KindConfiguration, "webhook url is not set")
	wrapped := fmt.Errorf("loading config: %w", base)

	if got := KindOf(wrapped); got != KindConfiguration {
		t.Fatalf("KindOf = %q, want %q", got, KindConfiguration)
	}
	if !Is(wrapped, KindConfiguration) {
		t.Fatal("Is(configuration) = false, want true")
	}
	if Is(wrapped, KindTransport) {
		t.Fatal("Is(transport) = true, want false")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatal("plain error should have unknown kind")
	}
	if Is(nil, KindUnknown) {
		t.Fatal("nil error should not match any kind")
	}
}

func TestTransportTruncatesBody(t *testing.T) {
	body := strings.Repeat("x", 800)
	err := Transport(500, body)

	if err.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", err.StatusCode)
	}
	if len(err.Body) != BodyExcerptLimit {
		t.Errorf("len(Body) = %d, want %d", len(err.Body), BodyExcerptLimit)
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Error() = %q, want status code", err.Error())
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("exec: not found")
	err := Wrap(KindSourceUnavailable, cause, "running %s", "powerjournal")

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is(err, cause) = false")
	}
	want := "source_unavailable error: running powerjournal: exec: not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  short  ", 10, "short"},
		{"abcdef", 3, "abc"},
		{"héllo", 2, "hé"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Excerpt(tt.in, tt.max); got != tt.want {
			t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
