package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero falls back to default", limit: 0, want: DefaultLimit},
		{name: "negative falls back to default", limit: -5, want: DefaultLimit},
		{name: "in range passes through", limit: 40, want: 40},
		{name: "above max is clamped", limit: 500, want: MaxLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeLimit(tc.limit); got != tc.want {
				t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.limit, got, tc.want)
			}
		})
	}
}

func TestFetchLimitAddsOne(t *testing.T) {
	if got := FetchLimit(0); got != DefaultLimit+1 {
		t.Fatalf("FetchLimit(0) = %d, want %d", got, DefaultLimit+1)
	}
	if got := FetchLimit(MaxLimit + 50); got != MaxLimit+1 {
		t.Fatalf("FetchLimit over max = %d, want %d", got, MaxLimit+1)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	boundary := Cursor{
		CreatedAt: time.Date(2025, 11, 3, 14, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(EncodeCursor(boundary))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected a cursor")
	}
	if !parsed.CreatedAt.Equal(boundary.CreatedAt) {
		t.Fatalf("expected created_at %s, got %s", boundary.CreatedAt, parsed.CreatedAt)
	}
	if parsed.ID != boundary.ID {
		t.Fatalf("expected id %s, got %s", boundary.ID, parsed.ID)
	}
}

func TestParseCursorBlankMeansFirstPage(t *testing.T) {
	cursor, err := ParseCursor("  ")
	if err != nil {
		t.Fatalf("parse blank: %v", err)
	}
	if cursor != nil {
		t.Fatalf("expected nil cursor, got %+v", cursor)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{
		"not-base64!!",
		rawEncode("no-separator"),
		rawEncode("2025-13-99T00:00:00Z|" + uuid.NewString()),
		rawEncode(time.Now().UTC().Format(time.RFC3339Nano) + "|not-a-uuid"),
	} {
		if _, err := ParseCursor(value); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("ParseCursor(%q): expected ErrInvalidCursor, got %v", value, err)
		}
	}
}

func rawEncode(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}
