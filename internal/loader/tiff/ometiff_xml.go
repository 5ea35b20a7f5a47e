package tiff

import (
	"io"
	"strings"
)

// ExtractOMEXML returns the first IFD's ImageDescription tag contents if it
// looks like an OME-XML document (OME-TIFF stores the full OME-XML once, in
// the first page). ImageJ-TIFF instead stores a "ImageJ=..." key=value
// comment block there; that is not OME-XML and is reported as absent.
func ExtractOMEXML(ifds []IFD, r io.ReaderAt, hdr Header) (string, bool) {
	if len(ifds) == 0 {
		return "", false
	}
	desc, ok := ifds[0].String(TagImageDescription, r, hdr.Order)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(desc)
	if strings.HasPrefix(trimmed, "<?xml") || strings.Contains(trimmed, "<OME") {
		return desc, true
	}
	return "", false
}

// IsImageJComment reports whether desc is an ImageJ "key=value" metadata
// comment block (starts with "ImageJ=").
func IsImageJComment(desc string) bool {
	return strings.HasPrefix(strings.TrimSpace(desc), "ImageJ=")
}

// ParseImageJComment extracts the images=N hint ImageJ writes into its
// ImageDescription block, used to recover slice count for ImageJ-TIFF
// stacks that carry no OME-XML.
func ParseImageJComment(desc string) (images int, ok bool) {
	for _, line := range strings.Split(desc, "\n") {
		line = strings.TrimSpace(line)
		const prefix = "images="
		if strings.HasPrefix(line, prefix) {
			n := 0
			for _, c := range line[len(prefix):] {
				if c < '0' || c > '9' {
					break
				}
				n = n*10 + int(c-'0')
			}
			if n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}
