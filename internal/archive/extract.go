package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
)

// ErrBadArchive is returned when bytes carry a known magic signature but
// cannot be parsed as that container format.
var ErrBadArchive = errors.New("archive: unreadable container")

// ExtractMember returns the decoded text of one member file. The requested
// path is tried literally, with a "./" prefix, and prefixed by the
// repository name, since snapshots commonly nest everything under a root
// folder named after the repository. Returns false when no variant
// matches; that is a normal miss, not an error.
func ExtractMember(data []byte, memberPath, repoName string) (string, bool, error) {
	variants := pathVariants(memberPath, repoName)

	switch DetectFormat(data) {
	case FormatZip:
		return extractZipMember(data, variants)
	case FormatTarGz:
		return extractTarMember(data, variants)
	default:
		return "", false, ErrBadArchive
	}
}

// ListMembers returns every member path in the archive without decoding
// any content.
func ListMembers(data []byte) ([]string, error) {
	switch DetectFormat(data) {
	case FormatZip:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, ErrBadArchive
		}
		names := make([]string, 0, len(zr.File))
		for _, zf := range zr.File {
			names = append(names, zf.Name)
		}
		return names, nil
	case FormatTarGz:
		return listTarMembers(data)
	default:
		return nil, ErrBadArchive
	}
}

// pathVariants lists the candidate member names for a requested path.
func pathVariants(memberPath, repoName string) []string {
	clean := strings.TrimPrefix(memberPath, "./")
	variants := []string{clean, "./" + clean}
	if repoName != "" {
		variants = append(variants, repoName+"/"+clean)
	}
	return variants
}

// extractZipMember looks the variants up against the zip central
// directory; only the matching member is decompressed.
func extractZipMember(data []byte, variants []string) (string, bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", false, ErrBadArchive
	}
	for _, name := range variants {
		for _, zf := range zr.File {
			if zf.Name != name {
				continue
			}
			rc, err := zf.Open()
			if err != nil {
				return "", false, ErrBadArchive
			}
			content, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", false, ErrBadArchive
			}
			return string(content), true, nil
		}
	}
	return "", false, nil
}

// extractTarMember streams the gzip-compressed tar and walks its entries
// until one matches; entry types other than regular files are skipped.
func extractTarMember(data []byte, variants []string) (string, bool, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", false, ErrBadArchive
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, ErrBadArchive
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		for _, name := range variants {
			if hdr.Name == name {
				content, err := io.ReadAll(tr)
				if err != nil {
					return "", false, ErrBadArchive
				}
				return string(content), true, nil
			}
		}
	}
}

func listTarMembers(data []byte) ([]string, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, ErrBadArchive
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, ErrBadArchive
		}
		if hdr.Typeflag == tar.TypeReg {
			names = append(names, hdr.Name)
		}
	}
}
