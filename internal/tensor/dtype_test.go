package tensor

import "testing"

func TestDTypeSize(t *testing.T) {
	tests := []struct {
		name string
		d    DType
		want int
	}{
		{"u8", U8, 1},
		{"u16", U16, 2},
		{"f32", F32, 4},
		{"invalid", DType(255), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDTypeIsValid(t *testing.T) {
	if !F32.IsValid() {
		t.Errorf("F32.IsValid() = false, want true")
	}
	if DType(200).IsValid() {
		t.Errorf("DType(200).IsValid() = true, want false")
	}
}

func TestDTypeString(t *testing.T) {
	tests := []struct {
		d    DType
		want string
	}{
		{U8, "u8"},
		{U16, "u16"},
		{F32, "f32"},
		{DType(200), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
