package resource

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jdalton/scripturecache/internal/archive"
	"github.com/jdalton/scripturecache/internal/cache"
	"github.com/jdalton/scripturecache/internal/catalog"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// padding keeps test archives above the fetcher's minimum size threshold.
var tsvBody = "Reference\tID\tNote\n" +
	"front:intro\tb001\tbook intro\n" +
	"1:intro\tb002\tchapter intro\n" +
	"1:1\tb003\tfirst\n" +
	"1:2\tb004\tsecond\n" +
	"2:1\tb005\tother chapter\n" +
	"x\tx\t" + strings.Repeat("pad ", 64)

type upstream struct {
	srv         *httptest.Server
	archiveHits atomic.Int32
	catalogHits atomic.Int32
	notesZip    []byte
	wordsZip    []byte
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	u.notesZip = buildZip(t, map[string]string{"en_tn/tn_TIT.tsv": tsvBody})
	u.wordsZip = buildZip(t, map[string]string{
		"en_tw/content/bible/kt/grace.md": "# grace\n\nunmerited favor\n" + strings.Repeat("pad ", 64),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/catalog/search", func(w http.ResponseWriter, r *http.Request) {
		u.catalogHits.Add(1)
		resources := []catalog.Resource{
			{
				Name: "en_tn", Owner: "unfoldingWord", Language: "en",
				Subject:    "TSV Translation Notes",
				ZipballURL: u.srv.URL + "/unfoldingWord/en_tn/archive/v86.zip",
				Ingredients: []catalog.Ingredient{
					{Identifier: "tit", Path: "./tn_TIT.tsv"},
				},
			},
			{
				Name: "en_tw", Owner: "unfoldingWord", Language: "en",
				Subject:         "Translation Words",
				BranchOrTagName: "v15",
			},
		}
		_ = json.NewEncoder(w).Encode(resources)
	})
	mux.HandleFunc("/unfoldingWord/en_tn/archive/v86.zip", func(w http.ResponseWriter, r *http.Request) {
		u.archiveHits.Add(1)
		_, _ = w.Write(u.notesZip)
	})
	mux.HandleFunc("/unfoldingWord/en_tw/archive/v15.zip", func(w http.ResponseWriter, r *http.Request) {
		u.archiveHits.Add(1)
		_, _ = w.Write(u.wordsZip)
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func newTestService(t *testing.T, u *upstream) (*Service, *cache.Chain) {
	t.Helper()
	chain := cache.NewChain(context.Background(), cache.ChainOptions{
		Providers:  []cache.Provider{cache.NewMemoryProvider(0)},
		DefaultTTL: time.Minute,
		Logger:     zerolog.Nop(),
	})
	cat := catalog.NewClient(u.srv.URL, t.TempDir(), time.Hour, zerolog.Nop())
	fetcher := archive.NewFetcher(u.srv.URL, t.TempDir(), 0, zerolog.Nop())
	return New(cat, fetcher, chain, zerolog.Nop()), chain
}

func TestNotesEndToEnd(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	rows, err := svc.Notes(context.Background(), "en", "unfoldingWord", "en_tn", "tit", "1:1")
	require.NoError(t, err)

	var refs []string
	for _, row := range rows {
		refs = append(refs, row["Reference"])
	}
	require.ElementsMatch(t, []string{"front:intro", "1:intro", "1:1"}, refs)
	require.EqualValues(t, 1, u.archiveHits.Load())
}

func TestNotesServedFromChainOnRepeat(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	_, err := svc.Notes(context.Background(), "en", "unfoldingWord", "en_tn", "tit", "1:1-2")
	require.NoError(t, err)

	archiveHits := u.archiveHits.Load()
	catalogHits := u.catalogHits.Load()

	rows, err := svc.Notes(context.Background(), "en", "unfoldingWord", "en_tn", "tit", "1:1-2")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, archiveHits, u.archiveHits.Load(), "repeat request must not refetch the archive")
	require.Equal(t, catalogHits, u.catalogHits.Load(), "repeat request must not re-query the catalog")
}

func TestNotesUnknownBook(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	_, err := svc.Notes(context.Background(), "en", "unfoldingWord", "en_tn", "gen", "1:1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNotesBadReference(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	_, err := svc.Notes(context.Background(), "en", "unfoldingWord", "en_tn", "tit", "nope")
	require.Error(t, err)
}

func TestWordEndToEnd(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	text, err := svc.Word(context.Background(), "en", "unfoldingWord", "Grace", "")
	require.NoError(t, err)
	require.Contains(t, text, "unmerited favor")
}

func TestWordExplicitPath(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	text, err := svc.Word(context.Background(), "en", "unfoldingWord", "", "content/bible/kt/grace.md")
	require.NoError(t, err)
	require.Contains(t, text, "# grace")
}

func TestWordUnknownTerm(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	_, err := svc.Word(context.Background(), "en", "unfoldingWord", "nonexistent", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUnknownRepo(t *testing.T) {
	u := newUpstream(t)
	svc, _ := newTestService(t, u)

	_, err := svc.Notes(context.Background(), "en", "unfoldingWord", "en_absent", "tit", "1:1")
	require.ErrorIs(t, err, ErrNotFound)
}
