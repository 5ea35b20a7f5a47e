package metadata

import "testing"

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Metadata
		wantErr bool
	}{
		{"valid", Metadata{SX: 512, SY: 512, SZ: 50, SC: 2, ST: 1}, false},
		{"zero sz", Metadata{SX: 512, SY: 512, SZ: 0, SC: 2, ST: 1}, true},
		{"negative voxel size", Metadata{SX: 1, SY: 1, SZ: 1, SC: 1, ST: 1, VoxelSizeUM: [3]float64{-1, 0, 0}}, true},
		{"positive voxel size ok", Metadata{SX: 1, SY: 1, SZ: 1, SC: 1, ST: 1, VoxelSizeUM: [3]float64{0.3, 0.1, 0.1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
