// Package paging implements forward-only keyset pagination over a
// case-folded sort key plus _id.
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Page is one page request: how many rows, and where the previous page
// stopped.
type Page struct {
	Limit  int
	Cursor *wafflemongo.Cursor
}

// FromRequest reads ?limit= and ?after=. Bad values fall back to the
// defaults rather than failing the request.
func FromRequest(r *http.Request) Page {
	p := Page{Limit: ClampLimit(query.Get(r, "limit"))}
	if after := query.Get(r, "after"); after != "" {
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			p.Cursor = &c
		}
	}
	return p
}

// ClampLimit parses s and keeps it within 1..MaxLimit.
func ClampLimit(s string) int {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil || n < 1:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// FetchLimit is Limit+1; the extra row tells Trim whether a next page exists.
func (p Page) FetchLimit() int64 {
	if p.Limit < 1 {
		return DefaultLimit + 1
	}
	return int64(p.Limit + 1)
}

// Window returns the filter that resumes after the cursor, or nil on the
// first page.
func (p Page) Window(sortField string) bson.M {
	if p.Cursor == nil {
		return nil
	}
	return wafflemongo.KeysetWindow(sortField, "gt", p.Cursor.CI, p.Cursor.ID)
}

// Trim cuts rows back to limit and reports whether more rows follow.
func Trim[T any](rows *[]T, limit int) (hasNext bool) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// NextCursor encodes the position of the last row, or "" when rows is empty.
func NextCursor[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) string {
	if len(rows) == 0 {
		return ""
	}
	last := rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}
