// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Prefix returns a filter matching documents whose folded field starts with
// the folded query, or nil when the query is blank. The anchored regex can
// use an index on the folded field.
func Prefix(field, q string) bson.M {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	return bson.M{field: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(text.Fold(q))}}
}

// SortField picks the sort key for a people search. Queries that look like
// an email sort by email so the prefix match walks the email index;
// everything else sorts by the folded name.
//
//	sortField := search.SortField(q, "public_name_ci", "email")
func SortField(q, nameField, emailField string) string {
	if EmailPivotOK(q) {
		return emailField
	}
	return nameField
}

// EmailPivotOK reports whether the query is clearly an email search.
func EmailPivotOK(q string) bool {
	return strings.Contains(q, "@")
}

// Merge ANDs the non-nil filters together.
func Merge(filters ...bson.M) bson.M {
	var parts []bson.M
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0]
	}
	return bson.M{"$and": parts}
}
