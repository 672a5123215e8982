// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection refused")
	ce := New(CodeSkillFailure, "skill invocation failed", cause)

	if ce.Code != CodeSkillFailure {
		t.Errorf("expected CodeSkillFailure, got %v", ce.Code)
	}
	if ce.Message != "skill invocation failed" {
		t.Errorf("expected message 'skill invocation failed', got %q", ce.Message)
	}
	if ce.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(ce, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeNotFound, 404},
		{CodeInvalidInput, 400},
		{CodeConflict, 409},
		{CodeTimeout, 408},
		{CodeInternal, 500},
		{CodeSkillFailure, 500},
	}
	for _, tc := range cases {
		if got := New(tc.code, "x", nil).StatusCode; got != tc.want {
			t.Errorf("%s: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestConstructors(t *testing.T) {
	if e := NotFound("unknown template: t1"); e.Code != CodeNotFound || e.StatusCode != 404 {
		t.Errorf("NotFound: unexpected %v / %d", e.Code, e.StatusCode)
	}
	if e := Invalid("missing required parameter: query"); e.Code != CodeInvalidInput || e.StatusCode != 400 {
		t.Errorf("Invalid: unexpected %v / %d", e.Code, e.StatusCode)
	}
	if e := Conflict("template already registered: t1"); e.Code != CodeConflict || e.StatusCode != 409 {
		t.Errorf("Conflict: unexpected %v / %d", e.Code, e.StatusCode)
	}
}

func TestWithContext(t *testing.T) {
	ce := New(CodeSkillFailure, "skill failed", nil)
	ce.WithContext("skill", "search").
		WithContext("input", map[string]interface{}{"query": "auth"})

	if ce.Context["skill"] != "search" {
		t.Errorf("expected context skill to be 'search'")
	}
	if ce.Context["input"] == nil {
		t.Errorf("expected context input to be set")
	}
}

func TestAsCadenzaError(t *testing.T) {
	if AsCadenzaError(nil) != nil {
		t.Errorf("expected nil for nil error")
	}

	ce := New(CodeNotFound, "unknown skill: nope", nil)
	if got := AsCadenzaError(ce); got != ce {
		t.Errorf("expected same error back")
	}

	plain := errors.New("boom")
	wrapped := AsCadenzaError(plain)
	if wrapped.Code != CodeInternal {
		t.Errorf("expected plain error wrapped as internal, got %v", wrapped.Code)
	}
	if !errors.Is(wrapped, plain) {
		t.Errorf("expected cause to be preserved")
	}
}

func TestIsCode(t *testing.T) {
	ce := Conflict("duplicate")
	if !IsCode(ce, CodeConflict) {
		t.Errorf("expected IsCode to match")
	}
	if IsCode(ce, CodeNotFound) {
		t.Errorf("expected IsCode mismatch")
	}
	if IsCode(errors.New("plain"), CodeConflict) {
		t.Errorf("expected plain error not to match")
	}
}

func TestMarshalJSON(t *testing.T) {
	ce := New(CodeInvalidInput, "bad parameter", errors.New("type mismatch")).WithRecoverable(true)
	data, err := json.Marshal(ce)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "INVALID_INPUT" {
		t.Errorf("unexpected code: %v", decoded["code"])
	}
	if decoded["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}
