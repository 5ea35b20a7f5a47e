package tiff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildClassicTIFF hand-assembles a minimal single-IFD, single-strip,
// uncompressed 8-bit grayscale TIFF for 2x2 pixels with values 10,20,30,40.
func buildClassicTIFF(t *testing.T) []byte {
	t.Helper()
	order := binary.LittleEndian
	strip := []byte{10, 20, 30, 40}

	tags := []synthTag{
		{TagImageWidth, typeLong, 1, u32bytes(order, 2)},
		{TagImageLength, typeLong, 1, u32bytes(order, 2)},
		{TagBitsPerSample, typeShort, 1, u16bytes(order, 8)},
		{TagSamplesPerPixel, typeShort, 1, u16bytes(order, 1)},
		{TagPhotometricInterpretation, typeShort, 1, u16bytes(order, 1)},
		{TagCompression, typeShort, 1, u16bytes(order, 1)},
		{TagRowsPerStrip, typeLong, 1, u32bytes(order, 2)},
		{TagImageDescription, typeASCII, 6, []byte("hello\x00")},
	}
	buf, err := synthesizeClassicTIFF(order, tags, [][]byte{strip})
	if err != nil {
		t.Fatalf("synthesizeClassicTIFF: %v", err)
	}
	return buf
}

func TestReadIFDsClassic(t *testing.T) {
	buf := buildClassicTIFF(t)
	ifds, hdr, err := ReadIFDs(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadIFDs: %v", err)
	}
	if hdr.BigTIFF {
		t.Fatalf("BigTIFF = true, want false")
	}
	if len(ifds) != 1 {
		t.Fatalf("len(ifds) = %d, want 1", len(ifds))
	}

	width, ok := ifds[0].Uint(TagImageWidth, hdr.Order)
	if !ok || width != 2 {
		t.Errorf("ImageWidth = %v (ok=%v), want 2", width, ok)
	}
	height, ok := ifds[0].Uint(TagImageLength, hdr.Order)
	if !ok || height != 2 {
		t.Errorf("ImageLength = %v (ok=%v), want 2", height, ok)
	}

	desc, ok := ifds[0].String(TagImageDescription, bytes.NewReader(buf), hdr.Order)
	if !ok || desc != "hello" {
		t.Errorf("ImageDescription = %q (ok=%v), want %q", desc, ok, "hello")
	}
}

func TestDecodePlaneRoundTrip(t *testing.T) {
	buf := buildClassicTIFF(t)
	r := bytes.NewReader(buf)
	ifds, hdr, err := ReadIFDs(r)
	if err != nil {
		t.Fatalf("ReadIFDs: %v", err)
	}

	img, err := DecodePlane(r, ifds[0], hdr)
	if err != nil {
		t.Fatalf("DecodePlane: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 2 || bounds.Dy() != 2 {
		t.Fatalf("decoded bounds = %v, want 2x2", bounds)
	}

	want := [2][2]uint32{{10, 20}, {30, 40}}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			got := r >> 8
			if got != want[y][x] {
				t.Errorf("pixel(%d,%d) = %d, want %d", x, y, got, want[y][x])
			}
		}
	}
}

func TestExtractOMEXMLAbsentForPlainComment(t *testing.T) {
	buf := buildClassicTIFF(t)
	ifds, hdr, err := ReadIFDs(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadIFDs: %v", err)
	}
	if _, ok := ExtractOMEXML(ifds, bytes.NewReader(buf), hdr); ok {
		t.Errorf("ExtractOMEXML found OME-XML in a plain comment")
	}
}

func TestParseImageJComment(t *testing.T) {
	desc := "ImageJ=1.53c\nimages=48\nslices=48\n"
	n, ok := ParseImageJComment(desc)
	if !ok || n != 48 {
		t.Errorf("ParseImageJComment = %d (ok=%v), want 48", n, ok)
	}
}
