package zstack

import (
	"context"
	"errors"
	"testing"
)

func TestProbeMetadataUnsupportedExtension(t *testing.T) {
	_, err := ProbeMetadata("stack.unsupported")
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want *UnsupportedFormatError", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), "does-not-exist.tif", LoadOpts{})
	if err == nil {
		t.Fatal("Load() error = nil, want an error for a missing file")
	}
}
