package webhooks

import (
	"errors"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"reference":"r1","status":"paid"}`)
	valid := Sign(body, "shh")

	tests := []struct {
		name    string
		body    []byte
		header  string
		secret  string
		wantErr bool
	}{
		{"valid", body, valid, "shh", false},
		{"missing", body, "", "shh", true},
		{"other scheme", body, "sha1=abcd", "shh", true},
		{"not hex", body, "sha256=zz", "shh", true},
		{"wrong secret", body, valid, "other", true},
		{"tampered body", []byte(`{"reference":"r1","status":"failed"}`), valid, "shh", true},
		{"no secret configured", body, valid, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.body, tt.header, tt.secret)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}

	if err := VerifySignature(body, "", "shh"); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestEventKind(t *testing.T) {
	t.Parallel()

	for status, want := range map[string]bool{
		"paid": true, "APPROVED": true, "declined": true, "expired": true,
		"refunded": false, "": false,
	} {
		if _, ok := eventKind(status); ok != want {
			t.Fatalf("status %q: expected mapped=%v", status, want)
		}
	}
}
