package tiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"golang.org/x/image/tiff"
)

// synthTag is one tag/value pair to write into a synthesized classic-TIFF
// IFD; value is written inline when it fits in 4 bytes, otherwise appended
// to the out-of-line data region.
type synthTag struct {
	tag   Tag
	typ   fieldType
	count uint32
	value []byte
}

// DecodePlane decodes the pixel plane described by ifd. Since
// golang.org/x/image/tiff only decodes a file's first IFD, this builds a
// minimal single-IFD classic-TIFF buffer around ifd's strip data and hands
// that to tiff.Decode, reusing its baseline raw/LZW/PackBits/Deflate strip
// decompression rather than reimplementing pixel codecs here.
func DecodePlane(r io.ReaderAt, ifd IFD, hdr Header) (image.Image, error) {
	order := hdr.Order

	width, ok := ifd.Uint(TagImageWidth, order)
	if !ok {
		return nil, fmt.Errorf("%w: missing ImageWidth", ErrMalformed)
	}
	height, ok := ifd.Uint(TagImageLength, order)
	if !ok {
		return nil, fmt.Errorf("%w: missing ImageLength", ErrMalformed)
	}

	stripOffsets, ok := ifd.Uints(TagStripOffsets, r, order)
	if !ok {
		return nil, fmt.Errorf("%w: missing StripOffsets", ErrMalformed)
	}
	stripCounts, ok := ifd.Uints(TagStripByteCounts, r, order)
	if !ok || len(stripCounts) != len(stripOffsets) {
		return nil, fmt.Errorf("%w: missing or mismatched StripByteCounts", ErrMalformed)
	}

	stripData := make([][]byte, len(stripOffsets))
	for i, off := range stripOffsets {
		buf := make([]byte, stripCounts[i])
		if _, err := r.ReadAt(buf, int64(off)); err != nil {
			return nil, fmt.Errorf("%w: reading strip %d: %v", ErrMalformed, i, err)
		}
		stripData[i] = buf
	}

	tags := []synthTag{
		{TagImageWidth, typeLong, 1, u32bytes(order, uint32(width))},
		{TagImageLength, typeLong, 1, u32bytes(order, uint32(height))},
	}
	if v, ok := ifd.Uint(TagBitsPerSample, order); ok {
		tags = append(tags, synthTag{TagBitsPerSample, typeShort, 1, u16bytes(order, uint16(v))})
	}
	if v, ok := ifd.Uint(TagSamplesPerPixel, order); ok {
		tags = append(tags, synthTag{TagSamplesPerPixel, typeShort, 1, u16bytes(order, uint16(v))})
	}
	if v, ok := ifd.Uint(TagPhotometricInterpretation, order); ok {
		tags = append(tags, synthTag{TagPhotometricInterpretation, typeShort, 1, u16bytes(order, uint16(v))})
	}
	if v, ok := ifd.Uint(TagCompression, order); ok {
		tags = append(tags, synthTag{TagCompression, typeShort, 1, u16bytes(order, uint16(v))})
	}
	if v, ok := ifd.Uint(TagSampleFormat, order); ok {
		tags = append(tags, synthTag{TagSampleFormat, typeShort, 1, u16bytes(order, uint16(v))})
	}
	if v, ok := ifd.Uint(TagRowsPerStrip, order); ok {
		tags = append(tags, synthTag{TagRowsPerStrip, typeLong, 1, u32bytes(order, uint32(v))})
	} else {
		tags = append(tags, synthTag{TagRowsPerStrip, typeLong, 1, u32bytes(order, uint32(height))})
	}

	buf, err := synthesizeClassicTIFF(order, tags, stripData)
	if err != nil {
		return nil, err
	}
	return tiff.Decode(bytes.NewReader(buf))
}

func u16bytes(order binary.ByteOrder, v uint16) []byte {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return b
}

func u32bytes(order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

// synthesizeClassicTIFF lays out: 8-byte header, strip data (concatenated),
// then the IFD (StripOffsets/StripByteCounts computed against the strip
// data's position), terminated with a next-IFD offset of 0.
func synthesizeClassicTIFF(order binary.ByteOrder, tags []synthTag, stripData [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	if order == binary.LittleEndian {
		buf.WriteString("II")
	} else {
		buf.WriteString("MM")
	}
	writeU16(&buf, order, 42)
	writeU32(&buf, order, 0) // first-IFD offset, patched once the strip data is laid out

	stripDataOffset := uint32(8)
	stripOffsets := make([]uint32, len(stripData))
	stripCounts := make([]uint32, len(stripData))
	cursor := stripDataOffset
	for i, d := range stripData {
		stripOffsets[i] = cursor
		stripCounts[i] = uint32(len(d))
		buf.Write(d)
		cursor += uint32(len(d))
	}

	allTags := append([]synthTag{}, tags...)
	allTags = append(allTags,
		synthTag{TagStripOffsets, typeLong, uint32(len(stripOffsets)), packU32Array(order, stripOffsets)},
		synthTag{TagStripByteCounts, typeLong, uint32(len(stripCounts)), packU32Array(order, stripCounts)},
	)

	ifdOffset := cursor
	order.PutUint32(buf.Bytes()[4:8], ifdOffset)
	writeIFD(&buf, order, allTags, ifdOffset)

	return buf.Bytes(), nil
}

func packU32Array(order binary.ByteOrder, vals []uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		order.PutUint32(b[i*4:i*4+4], v)
	}
	return b
}

// writeIFD appends a classic 12-byte-entry IFD (plus any out-of-line value
// data and a trailing 4-byte next-IFD offset of 0) at ifdOffset within buf.
func writeIFD(buf *bytes.Buffer, order binary.ByteOrder, tags []synthTag, ifdOffset uint32) {
	entrySize := uint32(12)
	headerSize := uint32(2)
	trailerSize := uint32(4)
	overflowStart := ifdOffset + headerSize + entrySize*uint32(len(tags)) + trailerSize

	var overflow bytes.Buffer
	type placed struct {
		tag   Tag
		typ   fieldType
		count uint32
		value [4]byte
	}
	placedTags := make([]placed, len(tags))
	cursor := overflowStart

	for i, t := range tags {
		var p placed
		p.tag, p.typ, p.count = t.tag, t.typ, t.count
		if len(t.value) <= 4 {
			copy(p.value[:], t.value)
		} else {
			writeU32At(p.value[:], order, cursor)
			overflow.Write(t.value)
			cursor += uint32(len(t.value))
		}
		placedTags[i] = p
	}

	writeU16(buf, order, uint16(len(tags)))
	for _, p := range placedTags {
		writeU16(buf, order, uint16(p.tag))
		writeU16(buf, order, uint16(p.typ))
		writeU32(buf, order, p.count)
		buf.Write(p.value[:])
	}
	writeU32(buf, order, 0) // no next IFD
	buf.Write(overflow.Bytes())
}

func writeU16(buf *bytes.Buffer, order binary.ByteOrder, v uint16) {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	buf.Write(b)
}

func writeU32(buf *bytes.Buffer, order binary.ByteOrder, v uint32) {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	buf.Write(b)
}

func writeU32At(dst []byte, order binary.ByteOrder, v uint32) {
	order.PutUint32(dst, v)
}
