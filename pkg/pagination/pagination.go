// Package pagination implements keyset paging over (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor is wrapped by every ParseCursor failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is the caller facing request: a page size and an opaque cursor.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the key of the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is a resolved Params ready to apply to a query.
type Page struct {
	Limit int
	After *Cursor
}

// NormalizeLimit clamps limit to [1, MaxLimit], using DefaultLimit for non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func Resolve(params Params) (Page, error) {
	after, err := ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, err
	}
	return Page{Limit: NormalizeLimit(params.Limit), After: after}, nil
}

// Scope orders by the key, skips past After and fetches one extra row so
// Trim can tell whether another page exists. Use with (*gorm.DB).Scopes.
func (p Page) Scope(db *gorm.DB) *gorm.DB {
	db = db.Order("created_at ASC").Order("id ASC").Limit(p.Limit + 1)
	if p.After != nil {
		db = db.Where("(created_at > ?) OR (created_at = ? AND id > ?)", p.After.CreatedAt, p.After.CreatedAt, p.After.ID)
	}
	return db
}

// Trim drops the lookahead row and returns the cursor for the next page, or
// nil on the last page.
func Trim[T any](p Page, rows []T, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= p.Limit {
		return rows, nil
	}
	rows = rows[:p.Limit]
	next := key(rows[len(rows)-1])
	return rows, &next
}

// EncodeCursor renders "<unix nanos>.<uuid>" as URL-safe base64.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCursor, err)
	}
	nanos, id, ok := strings.Cut(string(decoded), ".")
	if !ok {
		return nil, fmt.Errorf("%w: format", ErrInvalidCursor)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: parsed}, nil
}
