package loader

import (
	"bufio"
	"os"
	"regexp"

	"github.com/srieg/zstack-analyzer/internal/metadata"
)

// probeCZI reads just enough of a CZI container's header to populate basic
// metadata: the format is a genuinely proprietary chunked segment layout
// with no pure-Go decoder in this module's dependency closet, so only the
// self-describing XML metadata segment (when present near the start of the
// file) is scanned for SizeX/SizeY/SizeZ/SizeC hints.
func probeCZI(path string) (metadata.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return metadata.Metadata{}, err
	}
	defer f.Close()

	head := make([]byte, 64*1024)
	n, _ := f.Read(head)
	head = head[:n]

	m := metadata.Metadata{SX: 1, SY: 1, SZ: 1, SC: 1, ST: 1}
	if v, ok := firstIntMatch(sizeXRe, head); ok {
		m.SX = v
	}
	if v, ok := firstIntMatch(sizeYRe, head); ok {
		m.SY = v
	}
	if v, ok := firstIntMatch(sizeZRe, head); ok {
		m.SZ = v
	}
	if v, ok := firstIntMatch(sizeCRe, head); ok {
		m.SC = v
	}
	return m, nil
}

// probeND2 scans the first 32 KiB of the file for SizeX/SizeY text
// attributes and reports those dimensions when found; pixel decoding is
// out of scope (no pure-Go ND2 SDK binding in this dependency closet).
func probeND2(path string) (metadata.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return metadata.Metadata{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head := make([]byte, 32*1024)
	n, _ := r.Read(head)
	head = head[:n]

	m := metadata.Metadata{SX: 1, SY: 1, SZ: 1, SC: 1, ST: 1}
	if v, ok := firstIntMatch(sizeXRe, head); ok {
		m.SX = v
	}
	if v, ok := firstIntMatch(sizeYRe, head); ok {
		m.SY = v
	}
	return m, nil
}

// probeLIF reads the LIF container's fixed 12-byte segment header without
// interpreting its fields (the format was already confirmed by magic bytes)
// and returns all dimensions as 1; the LIF XML metadata block is not parsed
// and pixel decoding for this format is out of scope.
func probeLIF(path string) (metadata.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return metadata.Metadata{}, err
	}
	defer f.Close()

	var header [12]byte
	if _, err := f.Read(header[:]); err != nil {
		return metadata.Metadata{}, err
	}
	return metadata.Metadata{SX: 1, SY: 1, SZ: 1, SC: 1, ST: 1}, nil
}

var (
	sizeXRe = regexp.MustCompile(`SizeX["'=:\s]+(\d+)`)
	sizeYRe = regexp.MustCompile(`SizeY["'=:\s]+(\d+)`)
	sizeZRe = regexp.MustCompile(`SizeZ["'=:\s]+(\d+)`)
	sizeCRe = regexp.MustCompile(`SizeC["'=:\s]+(\d+)`)
)

func firstIntMatch(re *regexp.Regexp, data []byte) (int, bool) {
	m := re.FindSubmatch(data)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n, n > 0
}
