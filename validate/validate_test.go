package validate

import (
	"testing"
	"time"
)

func TestCheck_ValidWithNoFailures(t *testing.T) {
	var c Check
	c.Warn("minor issue")
	r := c.Result()
	if !r.Valid {
		t.Error("expected valid result with only warnings")
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(r.Warnings))
	}
}

func TestCheck_InvalidWithFailure(t *testing.T) {
	var c Check
	c.Fail("missing field %s", "temperature_k")
	r := c.Result()
	if r.Valid {
		t.Error("expected invalid result")
	}
	if len(r.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(r.Errors))
	}
}

func TestSuccess_TagsAcademicStandard(t *testing.T) {
	result := Success(42, nil, nil, time.Millisecond)
	if result.Status != StatusSuccess {
		t.Fatalf("expected StatusSuccess, got %v", result.Status)
	}
	if result.Metadata["academic_standard"] != "Grade_A" {
		t.Errorf("expected academic_standard tag, got %v", result.Metadata["academic_standard"])
	}
	if result.Data != 42 {
		t.Errorf("expected data 42, got %v", result.Data)
	}
}

func TestError_CarriesSentinelMessage(t *testing.T) {
	result := Error(ErrResourceUnavailable, []int(nil), time.Second)
	if result.Status != StatusError {
		t.Fatalf("expected StatusError, got %v", result.Status)
	}
	if len(result.Errors) != 1 || result.Errors[0] != ErrResourceUnavailable.Error() {
		t.Errorf("expected sentinel message, got %v", result.Errors)
	}
}

func TestValidationFailed_NoData(t *testing.T) {
	result := ValidationFailed[string]([]string{"bad range"}, nil, 0)
	if result.Status != StatusValidationFailed {
		t.Fatalf("expected StatusValidationFailed, got %v", result.Status)
	}
	if result.Data != "" {
		t.Errorf("expected zero value, got %q", result.Data)
	}
}
