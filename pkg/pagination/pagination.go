// Package pagination implements the keyset cursors shared by the list
// endpoints. Listings are ordered by (created_at DESC, id DESC) and the
// cursor carries the boundary row of the previous page.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size applied when the caller sends none.
	DefaultLimit = 25
	// MaxLimit caps how many rows a single page may request.
	MaxLimit = 100

	cursorSeparator = "|"
)

// ErrInvalidCursor reports a cursor that did not round-trip through EncodeCursor.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Params carries the limit and opaque cursor from a list request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the decoded keyset boundary: the creation instant and row ID of
// the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit substitutes DefaultLimit for missing values and clamps the
// rest to MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// FetchLimit returns the normalized limit plus one row, so repositories can
// tell whether another page exists without a second count query.
func FetchLimit(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor serializes the boundary into an opaque token safe to carry in
// a query string.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a token produced by EncodeCursor. A blank value means
// the first page and yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	pieces := strings.SplitN(string(decoded), cursorSeparator, 2)
	if len(pieces) != 2 {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, pieces[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}
	rowID, err := uuid.Parse(pieces[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad id", ErrInvalidCursor)
	}
	return &Cursor{CreatedAt: createdAt, ID: rowID}, nil
}
