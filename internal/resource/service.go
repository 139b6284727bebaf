// Package resource assembles domain responses from the catalog, the
// archive fetcher and the content extractors, fronted by the tiered
// response cache.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jdalton/scripturecache/internal/archive"
	"github.com/jdalton/scripturecache/internal/cache"
	"github.com/jdalton/scripturecache/internal/catalog"
	"github.com/jdalton/scripturecache/internal/content"
)

// ErrNotFound means the requested resource, member or term has no content.
// It is a normal outcome, not a system fault.
var ErrNotFound = errors.New("resource: not found")

// Service looks up catalog resources, pulls their archives and extracts
// scoped content. Assembled responses are cached in the chain, one layer
// above the fetcher's own archive store.
type Service struct {
	catalog *catalog.Client
	fetcher *archive.Fetcher
	chain   *cache.Chain
	log     zerolog.Logger
}

// New wires the service.
func New(cat *catalog.Client, fetcher *archive.Fetcher, chain *cache.Chain, log zerolog.Logger) *Service {
	return &Service{
		catalog: cat,
		fetcher: fetcher,
		chain:   chain,
		log:     log.With().Str("component", "resource").Logger(),
	}
}

// Notes returns the translation-note rows for one book scoped to ref
// ("3", "3:16" or "3:16-18").
func (s *Service) Notes(ctx context.Context, lang, org, repo, book, ref string) ([]content.Row, error) {
	parsed, err := content.ParseReference(book, ref)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("notes:%s:%s:%s:%s:%s", lang, org, repo, parsed.Book, ref)
	if data, ok := s.chain.Get(ctx, key); ok {
		var rows []content.Row
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
		s.log.Warn().Str("key", key).Msg("dropping undecodable cached response")
		s.chain.Delete(ctx, key)
	}

	res, err := s.findResource(ctx, lang, org, repo, "")
	if err != nil {
		return nil, err
	}
	data, err := s.fetchArchive(ctx, res)
	if err != nil {
		return nil, err
	}

	memberPath, ok := res.IngredientPath(parsed.Book)
	if !ok {
		memberPath = fmt.Sprintf("tn_%s.tsv", strings.ToUpper(parsed.Book))
	}
	text, found, err := archive.ExtractMember(data, memberPath, res.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	rows := content.FilterTSV(text, parsed)
	if encoded, err := json.Marshal(rows); err == nil {
		s.chain.Set(ctx, key, encoded, 0)
	}
	return rows, nil
}

// Word returns the glossary article for a term. When path is non-empty it
// is used verbatim instead of the category search.
func (s *Service) Word(ctx context.Context, lang, org, term, path string) (string, error) {
	key := fmt.Sprintf("words:%s:%s:%s:%s", lang, org, content.NormalizeTerm(term), path)
	if data, ok := s.chain.Get(ctx, key); ok {
		return string(data), nil
	}

	res, err := s.findResource(ctx, lang, org, "", "Translation Words")
	if err != nil {
		return "", err
	}
	data, err := s.fetchArchive(ctx, res)
	if err != nil {
		return "", err
	}

	memberPath := path
	if memberPath == "" {
		members, err := archive.ListMembers(data)
		if err != nil {
			return "", err
		}
		found := false
		if memberPath, found = content.FindTermPath(members, term); !found {
			// Last resort: the catalog-declared file list.
			var declared []string
			for _, ing := range res.Ingredients {
				declared = append(declared, ing.Path)
			}
			if memberPath, found = content.FindTermPath(declared, term); !found {
				return "", ErrNotFound
			}
		}
	}

	text, found, err := archive.ExtractMember(data, memberPath, res.Name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}

	s.chain.Set(ctx, key, []byte(text), 0)
	return text, nil
}

// findResource searches the catalog and picks the matching record, by
// repository name when given, else by subject.
func (s *Service) findResource(ctx context.Context, lang, org, repo, subject string) (*catalog.Resource, error) {
	results, err := s.catalog.Search(ctx, catalog.SearchQuery{
		Language: lang,
		Owner:    org,
		Stage:    "prod",
		Subject:  subject,
	})
	if err != nil {
		return nil, err
	}
	for i := range results {
		if repo != "" && results[i].Name == repo {
			return &results[i], nil
		}
		if repo == "" && subject != "" && results[i].Subject == subject {
			return &results[i], nil
		}
	}
	return nil, ErrNotFound
}

// fetchArchive resolves the resource to an immutable snapshot and returns
// its bytes.
func (s *Service) fetchArchive(ctx context.Context, res *catalog.Resource) ([]byte, error) {
	ref, ok := archive.Resolve(res)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := s.fetcher.GetOrDownload(ctx, ref.Organization, ref.Repository, ref.RefTag, ref.ZipballURL)
	if errors.Is(err, archive.ErrUnavailable) || errors.Is(err, archive.ErrNoRef) {
		return nil, ErrNotFound
	}
	return data, err
}
