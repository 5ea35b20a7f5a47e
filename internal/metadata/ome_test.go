package metadata

import (
	"math"
	"testing"
)

const sampleOMEXML = `<?xml version="1.0" encoding="UTF-8"?>
<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06">
  <Image ID="Image:0" AcquisitionDate="2024-03-14T10:00:00">
    <Pixels SizeX="512" SizeY="512" SizeZ="80" SizeC="2" SizeT="1" Type="uint16"
            PhysicalSizeX="0.1" PhysicalSizeXUnit="µm"
            PhysicalSizeY="0.1" PhysicalSizeYUnit="µm"
            PhysicalSizeZ="0.3" PhysicalSizeZUnit="µm">
      <Channel ID="Channel:0" Name="DAPI" ExcitationWavelength="405" EmissionWavelength="461"/>
      <Channel ID="Channel:1" Name="GFP" ExcitationWavelength="488" EmissionWavelength="509"/>
    </Pixels>
  </Image>
</OME>`

func TestParseOMEXML(t *testing.T) {
	m, err := ParseOMEXML([]byte(sampleOMEXML))
	if err != nil {
		t.Fatalf("ParseOMEXML: %v", err)
	}
	if m.SX != 512 || m.SY != 512 || m.SZ != 80 || m.SC != 2 || m.ST != 1 {
		t.Errorf("dimensions = %+v", m)
	}
	if m.BitsPerSample != 16 {
		t.Errorf("BitsPerSample = %d, want 16", m.BitsPerSample)
	}
	if math.Abs(m.VoxelSizeUM[2]-0.1) > 1e-9 {
		t.Errorf("VoxelSizeUM[X] = %v, want 0.1", m.VoxelSizeUM[2])
	}
	if len(m.Channels) != 2 || m.Channels[0].Name != "DAPI" || m.Channels[1].Name != "GFP" {
		t.Errorf("Channels = %+v", m.Channels)
	}
}

func TestMergePrecedence(t *testing.T) {
	filename := Metadata{SX: 1, SY: 1, SZ: 1, SC: 1, ST: 1, Microscope: "guessed"}
	native := Metadata{SX: 512, SY: 512, SZ: 50, SC: 1, ST: 1}
	ome := Metadata{SC: 2, Microscope: "LSM 880"}

	merged := Merge(Merge(filename, native), ome)
	if merged.SX != 512 || merged.SZ != 50 {
		t.Errorf("native dims should win over filename guess: %+v", merged)
	}
	if merged.SC != 2 {
		t.Errorf("OME SC should win over native: got %d", merged.SC)
	}
	if merged.Microscope != "LSM 880" {
		t.Errorf("OME microscope should win over filename guess: got %q", merged.Microscope)
	}
}
