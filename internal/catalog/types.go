// Package catalog queries the upstream content service's searchable index
// of published resource repositories, with a durable on-disk cache of
// search results.
package catalog

// Ingredient maps a logical content identifier (a book code, a glossary
// section) to its archive-relative path.
type Ingredient struct {
	Identifier string `json:"identifier"`
	Path       string `json:"path"`
}

// Channel is one production channel's pinned snapshot: a branch or tag
// name plus a direct archive download URL.
type Channel struct {
	BranchOrTagName string `json:"branch_or_tag_name"`
	ZipballURL      string `json:"zipball_url"`
}

// Channels groups the release channels a catalog record may carry.
type Channels struct {
	Prod    *Channel `json:"prod,omitempty"`
	PreProd *Channel `json:"preprod,omitempty"`
	Latest  *Channel `json:"latest,omitempty"`
}

// RepoSummary is the nested repository record some catalog responses
// embed; older API versions hang the release channels off it.
type RepoSummary struct {
	Name    string    `json:"name"`
	Owner   string    `json:"owner"`
	Catalog *Channels `json:"catalog,omitempty"`
}

// Resource is one catalog search result. Tag and download URL may appear
// directly on the record, on its own channel metadata, or on the embedded
// repo record, depending on the upstream API vintage.
type Resource struct {
	Name            string       `json:"name"`
	Owner           string       `json:"owner"`
	Language        string       `json:"language"`
	Subject         string       `json:"subject"`
	Title           string       `json:"title"`
	BranchOrTagName string       `json:"branch_or_tag_name"`
	ZipballURL      string       `json:"zipball_url"`
	Ingredients     []Ingredient `json:"ingredients,omitempty"`
	Catalog         *Channels    `json:"catalog,omitempty"`
	Repo            *RepoSummary `json:"repo,omitempty"`
}

// IngredientPath returns the archive-relative path declared for a logical
// identifier, or false when the resource does not list it.
func (r *Resource) IngredientPath(identifier string) (string, bool) {
	for _, ing := range r.Ingredients {
		if ing.Identifier == identifier {
			return ing.Path, true
		}
	}
	return "", false
}
