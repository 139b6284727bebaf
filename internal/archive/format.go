// Package archive resolves, downloads, validates and persists repository
// snapshot archives, and extracts individual member files from them.
package archive

// Format identifies an archive's container format from its magic bytes.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTarGz
)

// minArchiveSize rejects truncated transfers: no real snapshot archive is
// this small, but an error page or cut-off response can be.
const minArchiveSize = 100

// DetectFormat sniffs the container format from the first two bytes.
// Every validation, corruption-detection and extraction path goes through
// this one check.
func DetectFormat(data []byte) Format {
	if len(data) < 2 {
		return FormatUnknown
	}
	switch {
	case data[0] == 'P' && data[1] == 'K':
		return FormatZip
	case data[0] == 0x1f && data[1] == 0x8b:
		return FormatTarGz
	default:
		return FormatUnknown
	}
}

// Valid reports whether data looks like a complete archive: big enough to
// be a real transfer and carrying a recognized magic signature.
func Valid(data []byte) bool {
	return len(data) >= minArchiveSize && DetectFormat(data) != FormatUnknown
}
