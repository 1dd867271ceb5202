package auth

import (
	"errors"
	"testing"

	"github.com/danmuck/framewire/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTokensAcceptsAnyConfigured(t *testing.T) {
	testlog.Start(t)
	ts := Tokens{"old", "new"}
	for _, tok := range []string{"old", "new"} {
		if err := ts.Validate(tok); err != nil {
			t.Fatalf("expected %q accepted, got %v", tok, err)
		}
	}
	if err := ts.Validate("other"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := (Tokens{""}).Validate(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty configured token must not match, got %v", err)
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)
	validator := FuncValidator(func(token string) error {
		if token != "ok" {
			return ErrUnauthorized
		}
		return nil
	})
	if err := validator.Validate("bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
	if err := validator.Validate("ok"); err != nil {
		t.Fatalf("expected success for ok token, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		" Bearer x.y.z": "x.y.z",
	}
	for header, want := range cases {
		got, err := BearerToken(header)
		if err != nil || got != want {
			t.Fatalf("BearerToken(%q) = %q,%v want %q", header, got, err, want)
		}
	}
	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		if _, err := BearerToken(header); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("BearerToken(%q) expected ErrMissingToken, got %v", header, err)
		}
	}
}
