package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"sort"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

var testFiles = map[string]string{
	"en_tn/manifest.yaml": "dublin_core: {}",
	"en_tn/tn_TIT.tsv":    "Reference\tNote\n1:1\thello",
	"plain.txt":           "toplevel",
}

func TestExtractMember(t *testing.T) {
	archives := map[string][]byte{
		"zip":    buildZip(t, testFiles),
		"tar.gz": buildTarGz(t, testFiles),
	}

	for format, data := range archives {
		tests := []struct {
			path string
			want string
		}{
			// Repo-name prefix variant.
			{"tn_TIT.tsv", "Reference\tNote\n1:1\thello"},
			// Leading ./ is stripped before matching.
			{"./tn_TIT.tsv", "Reference\tNote\n1:1\thello"},
			// Literal match.
			{"en_tn/manifest.yaml", "dublin_core: {}"},
			{"plain.txt", "toplevel"},
		}
		for _, tt := range tests {
			got, found, err := ExtractMember(data, tt.path, "en_tn")
			if err != nil {
				t.Errorf("%s %s: unexpected error %v", format, tt.path, err)
				continue
			}
			if !found || got != tt.want {
				t.Errorf("%s %s: got (%q, %v), want %q", format, tt.path, got, found, tt.want)
			}
		}

		if _, found, err := ExtractMember(data, "missing.txt", "en_tn"); err != nil || found {
			t.Errorf("%s: missing member should be a clean miss, got found=%v err=%v", format, found, err)
		}
	}
}

func TestExtractMemberBadArchive(t *testing.T) {
	if _, _, err := ExtractMember([]byte("not an archive"), "x", ""); err != ErrBadArchive {
		t.Errorf("err = %v, want ErrBadArchive", err)
	}
}

func TestListMembers(t *testing.T) {
	want := []string{"en_tn/manifest.yaml", "en_tn/tn_TIT.tsv", "plain.txt"}

	for format, data := range map[string][]byte{
		"zip":    buildZip(t, testFiles),
		"tar.gz": buildTarGz(t, testFiles),
	} {
		got, err := ListMembers(data)
		if err != nil {
			t.Fatalf("%s: ListMembers failed: %v", format, err)
		}
		sort.Strings(got)
		if len(got) != len(want) {
			t.Fatalf("%s: got %v, want %v", format, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: member[%d] = %q, want %q", format, i, got[i], want[i])
			}
		}
	}
}
