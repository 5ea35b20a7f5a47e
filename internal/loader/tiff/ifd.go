package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is wrapped by any structural error found while walking the
// IFD chain (bad magic, truncated entry, offset out of range).
var ErrMalformed = errors.New("tiff: malformed file")

// Entry is one IFD tag/value record. Values that fit inline (<=4 bytes
// classic, <=8 bytes BigTIFF) are kept in Inline; otherwise Offset points to
// where the value lives in the file and Count*fieldSize(Type) is its byte
// length.
type Entry struct {
	Tag    Tag
	Type   fieldType
	Count  uint64
	Inline [8]byte
	Offset uint64
	inline bool
}

// IFD is one image file directory: one TIFF page.
type IFD struct {
	Entries map[Tag]Entry
	Next    uint64
}

// Header describes the file's byte order and offset width, determined once
// at the start of ReadIFDs.
type Header struct {
	Order   binary.ByteOrder
	BigTIFF bool
}

// ReadIFDs walks the full IFD chain of a TIFF or BigTIFF file starting at
// the header's first-IFD pointer, returning one IFD per page in file
// order.
func ReadIFDs(r io.ReaderAt) ([]IFD, Header, error) {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return nil, Header{}, fmt.Errorf("%w: reading header: %v", ErrMalformed, err)
	}

	var order binary.ByteOrder
	switch {
	case magic[0] == 'I' && magic[1] == 'I':
		order = binary.LittleEndian
	case magic[0] == 'M' && magic[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, Header{}, fmt.Errorf("%w: bad byte-order mark", ErrMalformed)
	}

	version := order.Uint16(magic[2:4])
	var hdr Header
	hdr.Order = order

	var firstIFD uint64
	switch version {
	case 42:
		var buf [4]byte
		if _, err := r.ReadAt(buf[:], 4); err != nil {
			return nil, hdr, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		firstIFD = uint64(order.Uint32(buf[:]))
	case 43:
		hdr.BigTIFF = true
		var buf [12]byte // bytesize(2) + constant(2) + offset(8)
		if _, err := r.ReadAt(buf[:], 4); err != nil {
			return nil, hdr, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		firstIFD = order.Uint64(buf[4:12])
	default:
		return nil, hdr, fmt.Errorf("%w: unrecognized version %d", ErrMalformed, version)
	}

	var ifds []IFD
	offset := firstIFD
	for offset != 0 {
		ifd, next, err := readOneIFD(r, order, hdr.BigTIFF, offset)
		if err != nil {
			return nil, hdr, err
		}
		ifds = append(ifds, ifd)
		offset = next
	}
	return ifds, hdr, nil
}

func readOneIFD(r io.ReaderAt, order binary.ByteOrder, bigTIFF bool, offset uint64) (IFD, uint64, error) {
	entrySize := 12
	countWidth := 2
	offsetWidth := 4
	if bigTIFF {
		entrySize = 20
		countWidth = 8
		offsetWidth = 8
	}

	countBuf := make([]byte, countWidth)
	if _, err := r.ReadAt(countBuf, int64(offset)); err != nil {
		return IFD{}, 0, fmt.Errorf("%w: reading entry count: %v", ErrMalformed, err)
	}
	var count uint64
	if bigTIFF {
		count = order.Uint64(countBuf)
	} else {
		count = uint64(order.Uint16(countBuf))
	}

	entries := make(map[Tag]Entry, count)
	base := int64(offset) + int64(countWidth)
	for i := uint64(0); i < count; i++ {
		buf := make([]byte, entrySize)
		if _, err := r.ReadAt(buf, base+int64(i)*int64(entrySize)); err != nil {
			return IFD{}, 0, fmt.Errorf("%w: reading entry %d: %v", ErrMalformed, i, err)
		}
		tag := Tag(order.Uint16(buf[0:2]))
		typ := fieldType(order.Uint16(buf[2:4]))

		var valCount uint64
		if bigTIFF {
			valCount = order.Uint64(buf[4:12])
		} else {
			valCount = uint64(order.Uint32(buf[4:8]))
		}

		valBuf := buf[entrySize-offsetWidth:]
		size := fieldSize(typ)
		totalBytes := size * int(valCount)

		e := Entry{Tag: tag, Type: typ, Count: valCount}
		if totalBytes <= offsetWidth && totalBytes > 0 {
			e.inline = true
			copy(e.Inline[:], valBuf)
		} else {
			if bigTIFF {
				e.Offset = order.Uint64(valBuf)
			} else {
				e.Offset = uint64(order.Uint32(valBuf))
			}
		}
		entries[tag] = e
	}

	nextOffBuf := make([]byte, offsetWidth)
	if _, err := r.ReadAt(nextOffBuf, base+int64(count)*int64(entrySize)); err != nil {
		return IFD{}, 0, fmt.Errorf("%w: reading next-IFD offset: %v", ErrMalformed, err)
	}
	var next uint64
	if bigTIFF {
		next = order.Uint64(nextOffBuf)
	} else {
		next = uint64(order.Uint32(nextOffBuf))
	}

	return IFD{Entries: entries}, next, nil
}

// Uint reads tag's value as an unsigned integer, for SHORT/LONG/LONG8
// single-valued tags stored inline.
func (ifd IFD) Uint(tag Tag, order binary.ByteOrder) (uint64, bool) {
	e, ok := ifd.Entries[tag]
	if !ok || !e.inline {
		return 0, false
	}
	switch e.Type {
	case typeShort:
		return uint64(order.Uint16(e.Inline[:2])), true
	case typeLong:
		return uint64(order.Uint32(e.Inline[:4])), true
	case typeLong8:
		return order.Uint64(e.Inline[:8]), true
	default:
		return 0, false
	}
}

// Bytes reads tag's full value (inline or out-of-line) from r.
func (ifd IFD) Bytes(tag Tag, r io.ReaderAt, order binary.ByteOrder) ([]byte, bool) {
	e, ok := ifd.Entries[tag]
	if !ok {
		return nil, false
	}
	n := fieldSize(e.Type) * int(e.Count)
	if e.inline {
		return append([]byte(nil), e.Inline[:n]...), true
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, int64(e.Offset)); err != nil {
		return nil, false
	}
	return buf, true
}

// Uints reads tag's full value as an array of unsigned integers, handling
// SHORT, LONG, and LONG8 element types and both inline and out-of-line
// storage.
func (ifd IFD) Uints(tag Tag, r io.ReaderAt, order binary.ByteOrder) ([]uint64, bool) {
	e, ok := ifd.Entries[tag]
	if !ok {
		return nil, false
	}
	b, ok := ifd.Bytes(tag, r, order)
	if !ok {
		return nil, false
	}
	size := fieldSize(e.Type)
	if size == 0 {
		return nil, false
	}
	out := make([]uint64, e.Count)
	for i := range out {
		chunk := b[i*size : i*size+size]
		switch e.Type {
		case typeShort:
			out[i] = uint64(order.Uint16(chunk))
		case typeLong:
			out[i] = uint64(order.Uint32(chunk))
		case typeLong8:
			out[i] = order.Uint64(chunk)
		default:
			return nil, false
		}
	}
	return out, true
}

// String reads an ASCII-typed tag's value, trimming the trailing NUL.
func (ifd IFD) String(tag Tag, r io.ReaderAt, order binary.ByteOrder) (string, bool) {
	b, ok := ifd.Bytes(tag, r, order)
	if !ok {
		return "", false
	}
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), true
}
