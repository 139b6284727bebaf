package content

import "strings"

// termCategories are the canonical glossary subdirectories, most specific
// first: key terms, proper names, then everything else.
var termCategories = []string{"kt", "names", "other"}

// NormalizeTerm lowercases a glossary term and strips all whitespace, so
// "Ark of the Covenant" and "arkofthecovenant" address the same file.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), "")
}

// FindTermPath locates the archive member for a glossary term within the
// given member index. Candidate suffixes are tried most-specific first
// (bible/<category>/<term>.md) before falling back to any <term>.md.
// Returns the matching member path, or false when the term has no file.
func FindTermPath(members []string, term string) (string, bool) {
	normalized := NormalizeTerm(term)
	if normalized == "" {
		return "", false
	}

	var suffixes []string
	for _, cat := range termCategories {
		suffixes = append(suffixes, "bible/"+cat+"/"+normalized+".md")
	}
	suffixes = append(suffixes, "/"+normalized+".md")

	for _, suffix := range suffixes {
		for _, member := range members {
			if strings.HasSuffix(strings.ToLower(member), suffix) {
				return member, true
			}
		}
	}
	return "", false
}
