package metadata

import (
	"encoding/xml"
	"time"
)

// ome is the minimal subset of the OME-XML schema this module reads out of
// a TIFF ImageDescription tag. Fields not needed to populate Metadata are
// left unparsed.
type ome struct {
	XMLName xml.Name  `xml:"OME"`
	Image   omeImage  `xml:"Image"`
}

type omeImage struct {
	AcquisitionDate string     `xml:"AcquisitionDate"`
	Pixels          omePixels  `xml:"Pixels"`
	Objective       *omeObjective `xml:"ObjectiveSettings"`
}

type omePixels struct {
	SizeX              int          `xml:"SizeX,attr"`
	SizeY              int          `xml:"SizeY,attr"`
	SizeZ              int          `xml:"SizeZ,attr"`
	SizeC              int          `xml:"SizeC,attr"`
	SizeT              int          `xml:"SizeT,attr"`
	Type               string       `xml:"Type,attr"`
	PhysicalSizeX      float64      `xml:"PhysicalSizeX,attr"`
	PhysicalSizeXUnit  string       `xml:"PhysicalSizeXUnit,attr"`
	PhysicalSizeY      float64      `xml:"PhysicalSizeY,attr"`
	PhysicalSizeYUnit  string       `xml:"PhysicalSizeYUnit,attr"`
	PhysicalSizeZ      float64      `xml:"PhysicalSizeZ,attr"`
	PhysicalSizeZUnit  string       `xml:"PhysicalSizeZUnit,attr"`
	Channels           []omeChannel `xml:"Channel"`
}

type omeChannel struct {
	Name                 string  `xml:"Name,attr"`
	ExcitationWavelength float64 `xml:"ExcitationWavelength,attr"`
	EmissionWavelength   float64 `xml:"EmissionWavelength,attr"`
	Fluor                string  `xml:"Fluor,attr"`
	Color                string  `xml:"Color,attr"`
}

type omeObjective struct {
	ID string `xml:"ID,attr"`
}

// unitToMicrometers converts an OME physical-size unit name to a
// micrometers multiplier; unrecognized or empty units are treated as
// already-micrometers (OME's default).
func unitToMicrometers(unit string) float64 {
	switch unit {
	case "nm":
		return 1e-3
	case "mm":
		return 1e3
	case "cm":
		return 1e4
	case "m":
		return 1e6
	default:
		return 1
	}
}

// ParseOMEXML parses an OME-XML document (as found verbatim in a TIFF
// ImageDescription tag) into a Metadata value. Fields the schema doesn't
// carry are left at their zero value.
func ParseOMEXML(doc []byte) (Metadata, error) {
	var o ome
	if err := xml.Unmarshal(doc, &o); err != nil {
		return Metadata{}, err
	}

	p := o.Image.Pixels
	m := Metadata{
		SX: p.SizeX, SY: p.SizeY, SZ: p.SizeZ, SC: p.SizeC, ST: p.SizeT,
		VoxelSizeUM: [3]float64{
			p.PhysicalSizeZ * unitToMicrometers(p.PhysicalSizeZUnit),
			p.PhysicalSizeY * unitToMicrometers(p.PhysicalSizeYUnit),
			p.PhysicalSizeX * unitToMicrometers(p.PhysicalSizeXUnit),
		},
		BitsPerSample: bitsForOMEType(p.Type),
	}
	for _, c := range p.Channels {
		m.Channels = append(m.Channels, Channel{
			Name:         c.Name,
			ExcitationNM: c.ExcitationWavelength,
			EmissionNM:   c.EmissionWavelength,
			Fluorophore:  c.Fluor,
			ColorHint:    c.Color,
		})
	}
	if o.Image.AcquisitionDate != "" {
		if t, err := time.Parse(time.RFC3339, o.Image.AcquisitionDate); err == nil {
			m.Acquired = t
		}
	}
	return m, nil
}

func bitsForOMEType(t string) int {
	switch t {
	case "uint8", "int8":
		return 8
	case "uint16", "int16":
		return 16
	case "float", "float32", "double", "float64":
		return 32
	default:
		return 0
	}
}

// Merge combines base with override, taking override's value for any field
// override populates (non-zero), otherwise keeping base's. Used to combine
// OME-XML, container-native tags, and filename heuristics in strictly
// descending precedence: Merge(Merge(filenameGuess, containerNative), ome).
func Merge(base, override Metadata) Metadata {
	out := base
	if override.SX != 0 {
		out.SX = override.SX
	}
	if override.SY != 0 {
		out.SY = override.SY
	}
	if override.SZ != 0 {
		out.SZ = override.SZ
	}
	if override.SC != 0 {
		out.SC = override.SC
	}
	if override.ST != 0 {
		out.ST = override.ST
	}
	if override.BitsPerSample != 0 {
		out.BitsPerSample = override.BitsPerSample
	}
	for i, v := range override.VoxelSizeUM {
		if v != 0 {
			out.VoxelSizeUM[i] = v
		}
	}
	if len(override.Channels) > 0 {
		out.Channels = override.Channels
	}
	if override.Objective != (Objective{}) {
		out.Objective = override.Objective
	}
	if override.Microscope != "" {
		out.Microscope = override.Microscope
	}
	if !override.Acquired.IsZero() {
		out.Acquired = override.Acquired
	}
	if override.Raw != nil {
		if out.Raw == nil {
			out.Raw = map[string]string{}
		}
		for k, v := range override.Raw {
			out.Raw[k] = v
		}
	}
	return out
}
