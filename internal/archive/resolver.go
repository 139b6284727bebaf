package archive

import (
	"net/url"
	"regexp"

	"github.com/jdalton/scripturecache/internal/catalog"
)

// Ref pins a logical (organization, repository) pair to one immutable
// snapshot. RefTag and ZipballURL may each be empty, but never both on a
// successful resolution.
type Ref struct {
	Organization string
	Repository   string
	RefTag       string
	ZipballURL   string
}

// archiveTag matches the trailing /archive/<tag>.<ext> segment of a
// snapshot download URL.
var archiveTag = regexp.MustCompile(`/archive/([^/?]+?)\.(?:zip|tar\.gz|tgz)(?:\?.*)?$`)

// Resolve determines the snapshot tag and download URL for a catalog
// resource. Fields directly on the record win; otherwise the release
// channels are searched, first on the resource and then on the embedded
// repo record, prod before latest. When only a URL is found, the tag is
// derived from its trailing archive segment. Returns false when neither a
// tag nor a URL can be found anywhere, which callers must treat as
// "resource unavailable" rather than a transient error.
func Resolve(res *catalog.Resource) (Ref, bool) {
	ref := Ref{
		Organization: res.Owner,
		Repository:   res.Name,
		RefTag:       res.BranchOrTagName,
		ZipballURL:   res.ZipballURL,
	}

	for _, ch := range channelFallbacks(res) {
		if ref.RefTag != "" || ref.ZipballURL != "" {
			break
		}
		if ch == nil {
			continue
		}
		ref.RefTag = ch.BranchOrTagName
		ref.ZipballURL = ch.ZipballURL
	}

	if ref.RefTag == "" && ref.ZipballURL != "" {
		ref.RefTag = TagFromURL(ref.ZipballURL)
	}
	if ref.RefTag == "" && ref.ZipballURL == "" {
		return Ref{}, false
	}
	return ref, true
}

// channelFallbacks lists the legacy metadata locations to try, in priority
// order.
func channelFallbacks(res *catalog.Resource) []*catalog.Channel {
	var out []*catalog.Channel
	if res.Catalog != nil {
		out = append(out, res.Catalog.Prod, res.Catalog.PreProd, res.Catalog.Latest)
	}
	if res.Repo != nil && res.Repo.Catalog != nil {
		out = append(out, res.Repo.Catalog.Prod, res.Repo.Catalog.PreProd, res.Repo.Catalog.Latest)
	}
	return out
}

// TagFromURL derives a ref tag from a download URL's trailing
// /archive/<tag>.<ext> segment. Returns "" when the URL has no such
// segment.
func TagFromURL(zipballURL string) string {
	m := archiveTag.FindStringSubmatch(zipballURL)
	if m == nil {
		return ""
	}
	if decoded, err := url.PathUnescape(m[1]); err == nil {
		return decoded
	}
	return m[1]
}
