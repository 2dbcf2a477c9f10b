package okta

import (
	"net/http"

	"github.com/tomnomnom/linkheader"
)

// nextLink returns the target of the rel="next" entry of the Link headers, or "".
// Okta sends one Link header per relation, e.g.
//
//	Link: <https://example.okta.com/api/v1/apps/0oa1/groups?after=00g2>; rel="next"
func nextLink(header http.Header) string {
	next := linkheader.ParseMultiple(header.Values("Link")).FilterByRel("next")
	if len(next) == 0 {
		return ""
	}
	return next[0].URL
}
