// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in a list response.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 200

// Request is a forward keyset page request: rows strictly after the
// cursor, ordered by (sort field, _id).
type Request struct {
	After string
	Limit int
}

// ParseRequest reads "after" and "limit" from the query string.
func ParseRequest(r *http.Request) Request {
	q := r.URL.Query()
	return Request{After: q.Get("after"), Limit: clampLimit(q.Get("limit"))}
}

func clampLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Size is the effective page size.
func (p Request) Size() int { return p.limit() }

// IDFindOptions sorts by _id alone, fetching one extra row.
func (p Request) IDFindOptions() *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(p.limit() + 1))
}

func (p Request) limit() int {
	if p.Limit < 1 {
		return PageSize
	}
	return p.Limit
}

// Window returns the cursor condition to AND into the query filter, or nil
// for the first page or an undecodable cursor.
func (p Request) Window(sortField string) bson.M {
	if p.After == "" {
		return nil
	}
	c, ok := wafflemongo.DecodeCursor(p.After)
	if !ok {
		return nil
	}
	return wafflemongo.KeysetWindow(sortField, "gt", c.CI, c.ID)
}

// Filter merges base with the cursor window.
func (p Request) Filter(base bson.M, sortField string) bson.M {
	w := p.Window(sortField)
	if w == nil {
		return base
	}
	if len(base) == 0 {
		return w
	}
	return bson.M{"$and": []bson.M{base, w}}
}

// FindOptions sorts by (sortField, _id) and fetches one extra row for
// look-ahead.
func (p Request) FindOptions(sortField string) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(p.limit() + 1))
}

// Page is the JSON envelope for list responses.
type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
}

// Build trims the look-ahead row and computes the next cursor from the last
// row kept. keyFn extracts the sort key, idFn the ObjectID.
func Build[T any](rows []T, p Request, keyFn func(T) string, idFn func(T) primitive.ObjectID) Page[T] {
	n := p.limit()
	hasMore := len(rows) > n
	if hasMore {
		rows = rows[:n]
	}
	if rows == nil {
		rows = []T{}
	}
	page := Page[T]{Items: rows}
	if hasMore {
		last := rows[len(rows)-1]
		page.Next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	}
	return page
}
