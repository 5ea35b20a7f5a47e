package errorsx

import (
	"errors"
	"testing"
)

func TestOutOfMemoryErrorUnwrap(t *testing.T) {
	inner := errors.New("alloc failed")
	err := &OutOfMemoryError{Stage: "STAGE_1", Err: inner}
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is did not see wrapped inner error")
	}
	if err.Error() == "" {
		t.Errorf("Error() returned empty string")
	}
}

func TestInvalidParameterErrorMessage(t *testing.T) {
	err := &InvalidParameterError{Name: "sigma", Reason: "out of range [0,10]"}
	want := `errorsx: invalid parameter "sigma": out of range [0,10]`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCancelledErrorWithAndWithoutStage(t *testing.T) {
	if (&CancelledError{}).Error() != "errorsx: cancelled" {
		t.Errorf("unexpected message for empty stage")
	}
	if (&CancelledError{Stage: "STAGE_2"}).Error() == "errorsx: cancelled" {
		t.Errorf("stage-qualified message should differ from the bare one")
	}
}
