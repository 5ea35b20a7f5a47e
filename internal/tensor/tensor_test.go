package tensor

import (
	"context"
	"errors"
	"testing"
)

func u16Bytes(vals ...uint16) []byte {
	out := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		out = append(out, byte(v), byte(v>>8))
	}
	return out
}

func TestFromHostShapeValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		shape   [3]int
		dtype   DType
		wantErr bool
	}{
		{"valid u8", make([]byte, 8), [3]int{2, 2, 2}, U8, false},
		{"valid u16", u16Bytes(1, 2, 3, 4), [3]int{1, 2, 2}, U16, false},
		{"zero extent", make([]byte, 0), [3]int{0, 2, 2}, U8, true},
		{"negative extent", make([]byte, 0), [3]int{-1, 2, 2}, U8, true},
		{"wrong byte count", make([]byte, 4), [3]int{2, 2, 2}, U8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromHost(tt.data, tt.shape, tt.dtype, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromHost() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromHostToHostRoundtrip(t *testing.T) {
	data := u16Bytes(10, 20, 30, 40, 50, 60, 70, 80)
	ts, err := FromHost(data, [3]int{2, 2, 2}, U16, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	got, err := ts.ToHost(context.Background())
	if err != nil {
		t.Fatalf("ToHost() error = %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("ToHost() len = %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("ToHost()[%d] = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestTensorShapeStrideDType(t *testing.T) {
	ts, err := FromHost(make([]byte, 24), [3]int{2, 3, 4}, U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	if ts.Shape() != [3]int{2, 3, 4} {
		t.Errorf("Shape() = %v, want [2 3 4]", ts.Shape())
	}
	if ts.Stride() != [3]int{12, 4, 1} {
		t.Errorf("Stride() = %v, want [12 4 1]", ts.Stride())
	}
	if ts.DType() != U8 {
		t.Errorf("DType() = %v, want U8", ts.DType())
	}
	if ts.IsDeviceResident() {
		t.Errorf("IsDeviceResident() = true, want false")
	}
}

func TestTensorFill(t *testing.T) {
	ts, err := FromHost(make([]byte, 8), [3]int{2, 2, 2}, U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	if err := ts.Fill(7); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	data, _ := ts.ToHost(context.Background())
	for i, v := range data {
		if v != 7 {
			t.Errorf("data[%d] = %d, want 7", i, v)
		}
	}
}

func TestTensorToScalar(t *testing.T) {
	ts, err := FromHost(u16Bytes(42), [3]int{1, 1, 1}, U16, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	v, err := ts.ToScalar()
	if err != nil {
		t.Fatalf("ToScalar() error = %v", err)
	}
	if v != 42 {
		t.Errorf("ToScalar() = %v, want 42", v)
	}

	multi, err := FromHost(u16Bytes(1, 2), [3]int{1, 1, 2}, U16, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	if _, err := multi.ToScalar(); !errors.Is(err, ErrRankMismatch) {
		t.Errorf("ToScalar() on rank>0 error = %v, want ErrRankMismatch", err)
	}
}

func TestTensorReshape(t *testing.T) {
	ts, err := FromHost(make([]byte, 24), [3]int{2, 3, 4}, U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	reshaped, err := ts.Reshape([3]int{1, 4, 6})
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}
	if reshaped.Shape() != [3]int{1, 4, 6} {
		t.Errorf("Reshape() shape = %v, want [1 4 6]", reshaped.Shape())
	}

	if _, err := ts.Reshape([3]int{2, 2, 2}); err == nil {
		t.Errorf("Reshape() with mismatched element count succeeded, want error")
	}
}

func TestTensorViewAndAsType(t *testing.T) {
	data := u16Bytes(0, 1, 2, 3, 4, 5, 6, 7)
	ts, err := FromHost(data, [3]int{2, 2, 2}, U16, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}

	view, err := ts.View([3]int{1, 0, 0}, [3]int{1, 2, 2})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	scalar, err := view.View([3]int{0, 0, 0}, [3]int{1, 1, 1})
	if err != nil {
		t.Fatalf("View() nested error = %v", err)
	}
	v, err := scalar.ToScalar()
	if err != nil {
		t.Fatalf("ToScalar() error = %v", err)
	}
	if v != 4 {
		t.Errorf("ToScalar() on view = %v, want 4 (first element of z=1 slab)", v)
	}

	asF32, err := view.AsType(F32)
	if err != nil {
		t.Fatalf("AsType() error = %v", err)
	}
	if asF32.DType() != F32 {
		t.Errorf("AsType() dtype = %v, want F32", asF32.DType())
	}
	if asF32.Shape() != view.Shape() {
		t.Errorf("AsType() shape = %v, want %v", asF32.Shape(), view.Shape())
	}
	converted, err := asF32.ToHost(context.Background())
	if err != nil {
		t.Fatalf("ToHost() error = %v", err)
	}
	if len(converted) != 4*4 {
		t.Fatalf("ToHost() len = %d, want 16", len(converted))
	}
}

func TestTensorViewOutOfBounds(t *testing.T) {
	ts, err := FromHost(make([]byte, 8), [3]int{2, 2, 2}, U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	if _, err := ts.View([3]int{1, 1, 1}, [3]int{2, 2, 2}); err == nil {
		t.Errorf("View() out of bounds succeeded, want error")
	}
}

func TestTensorCopyFromIntoSubView(t *testing.T) {
	dst, err := FromHost(make([]byte, 4*4*4), [3]int{4, 4, 4}, U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	patch, err := FromHost([]byte{9, 9, 9, 9}, [3]int{1, 2, 2}, U8, nil)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}

	region, err := dst.View([3]int{1, 1, 1}, [3]int{1, 2, 2})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if err := region.CopyFrom(patch); err != nil {
		t.Fatalf("CopyFrom() error = %v", err)
	}

	data, err := dst.ToHost(context.Background())
	if err != nil {
		t.Fatalf("ToHost() error = %v", err)
	}
	// Voxel (1,1,1) is at flat index (1*4+1)*4+1 = 21 in the 4x4x4 volume.
	if data[21] != 9 {
		t.Errorf("dst voxel (1,1,1) = %d, want 9", data[21])
	}
	// A voxel outside the patched region must be untouched.
	if data[0] != 0 {
		t.Errorf("dst voxel (0,0,0) = %d, want 0 (outside patched region)", data[0])
	}
}

func TestTensorCopyFromShapeMismatch(t *testing.T) {
	a, _ := FromHost(make([]byte, 8), [3]int{2, 2, 2}, U8, nil)
	b, _ := FromHost(make([]byte, 4), [3]int{1, 2, 2}, U8, nil)
	if err := a.CopyFrom(b); err == nil {
		t.Errorf("CopyFrom() with mismatched shapes succeeded, want error")
	}
}

func TestTensorRelease(t *testing.T) {
	pool := NewPool(4)
	ts, err := FromHost(make([]byte, 8), [3]int{2, 2, 2}, U8, pool)
	if err != nil {
		t.Fatalf("FromHost() error = %v", err)
	}
	ts.Release()
	if _, err := ts.ToHost(context.Background()); err == nil {
		t.Errorf("ToHost() after Release() succeeded, want error")
	}
}
