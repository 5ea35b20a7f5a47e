package loader

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies a recognized container format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatTIFF
	FormatOMETIFF
	FormatCZI
	FormatND2
	FormatLIF
	FormatLSM
)

func (f Format) String() string {
	switch f {
	case FormatTIFF:
		return "TIFF"
	case FormatOMETIFF:
		return "OME-TIFF"
	case FormatCZI:
		return "CZI"
	case FormatND2:
		return "ND2"
	case FormatLIF:
		return "LIF"
	case FormatLSM:
		return "LSM"
	default:
		return "unknown"
	}
}

// pixelDecodable reports whether Read can produce pixel data for f; CZI,
// ND2, and LIF are detect-and-probe only.
func (f Format) pixelDecodable() bool {
	switch f {
	case FormatTIFF, FormatOMETIFF, FormatLSM:
		return true
	default:
		return false
	}
}

var extensionFormats = map[string]Format{
	".tif":      FormatTIFF,
	".tiff":     FormatTIFF,
	".ome.tif":  FormatOMETIFF,
	".ome.tiff": FormatOMETIFF,
	".czi":      FormatCZI,
	".nd2":      FormatND2,
	".lif":      FormatLIF,
	".lsm":      FormatLSM,
}

// formatFromExtension inspects path's extension, recognizing the
// double-extension ".ome.tif(f)" form before falling back to the final
// single extension.
func formatFromExtension(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".ome.tif") {
		return FormatOMETIFF
	}
	if strings.HasSuffix(lower, ".ome.tiff") {
		return FormatOMETIFF
	}
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extensionFormats[ext]
	if !ok {
		return FormatUnknown
	}
	return f
}

// magicByteFormat reports the format magic bytes imply, independent of
// extension; it is used to confirm (or reject) what the extension guessed.
func magicByteFormat(header []byte) Format {
	switch {
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{'I', 'I', '*', 0}):
		return FormatTIFF
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{'M', 'M', 0, '*'}):
		return FormatTIFF
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{'I', 'I', 0x2B, 0}):
		return FormatTIFF // BigTIFF, little-endian
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{'M', 'M', 0, 0x2B}):
		return FormatTIFF // BigTIFF, big-endian
	case len(header) >= 10 && bytes.Equal(header[:10], []byte("ZISRAWFILE")):
		return FormatCZI
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{0x0C, 0, 0, 0}):
		return FormatLIF
	case looksLikeND2(header):
		return FormatND2
	default:
		return FormatUnknown
	}
}

// looksLikeND2 checks for ND2's JPEG2000-box-like chunk magic at the start
// of the file: a 4-byte length field followed by the literal tag "ND2 ".
func looksLikeND2(header []byte) bool {
	return len(header) >= 8 && bytes.Equal(header[4:8], []byte("ND2 "))
}
