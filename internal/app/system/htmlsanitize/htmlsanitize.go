// Package htmlsanitize cleans user-supplied content before it is stored.
// Message bodies keep basic formatting; single-line fields keep none.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	once.Do(func() {
		ugc = bluemonday.UGCPolicy()
		ugc.RequireNoFollowOnLinks(true)
		ugc.AddTargetBlankToFullyQualifiedLinks(true)
		strict = bluemonday.StrictPolicy()
	})
	return ugc, strict
}

// Message sanitizes a connection or conversation message body.
func Message(s string) string {
	p, _ := policies()
	return strings.TrimSpace(p.Sanitize(s))
}

// Text strips all markup from a single-line field such as a subject or a
// name.
func Text(s string) string {
	_, p := policies()
	return strings.TrimSpace(p.Sanitize(s))
}
