package tiff

// Tag is a TIFF IFD entry tag id.
type Tag uint16

// Baseline tags this walker extracts. Unknown tags are kept in an IFD's
// Entries map but have no named constant.
const (
	TagImageWidth                Tag = 256
	TagImageLength                Tag = 257
	TagBitsPerSample              Tag = 258
	TagCompression                Tag = 259
	TagPhotometricInterpretation  Tag = 262
	TagImageDescription           Tag = 270
	TagStripOffsets               Tag = 273
	TagSamplesPerPixel            Tag = 277
	TagRowsPerStrip               Tag = 278
	TagStripByteCounts            Tag = 279
	TagXResolution                Tag = 282
	TagYResolution                Tag = 283
	TagSoftware                   Tag = 305
	TagDateTime                   Tag = 306
	TagResolutionUnit             Tag = 296
	TagSampleFormat               Tag = 339
)

// fieldType is a TIFF entry value type id.
type fieldType uint16

const (
	typeByte      fieldType = 1
	typeASCII     fieldType = 2
	typeShort     fieldType = 3
	typeLong      fieldType = 4
	typeRational  fieldType = 5
	typeSByte     fieldType = 6
	typeUndefined fieldType = 7
	typeSShort    fieldType = 8
	typeSLong     fieldType = 9
	typeSRational fieldType = 10
	typeFloat     fieldType = 11
	typeDouble    fieldType = 12
	typeLong8     fieldType = 16 // BigTIFF
	typeSLong8    fieldType = 17
	typeIFD8      fieldType = 18
)

// fieldSize returns the byte size of one value of t, or 0 if unknown.
func fieldSize(t fieldType) int {
	switch t {
	case typeByte, typeASCII, typeSByte, typeUndefined:
		return 1
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, typeFloat:
		return 4
	case typeRational, typeSRational, typeDouble, typeLong8, typeSLong8, typeIFD8:
		return 8
	default:
		return 0
	}
}
