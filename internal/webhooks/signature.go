package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader carries "sha256=<hex hmac of the raw body>"
const SignatureHeader = "X-Signature"

var (
	ErrMissingSignature = errors.New("webhook signature is missing")
	ErrBadSignature     = errors.New("webhook signature mismatch")
)

// VerifySignature checks header against the HMAC-SHA256 of body. The error is safe to log;
// it never includes the expected digest.
func VerifySignature(body []byte, header, secret string) error {
	if secret == "" {
		return errors.New("webhook secret is not configured")
	}
	if header == "" {
		return ErrMissingSignature
	}
	hexDigest, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return fmt.Errorf("unsupported signature scheme in %q", truncate(header, 16))
	}
	got, err := hex.DecodeString(hexDigest)
	if err != nil {
		return fmt.Errorf("invalid hex signature: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces the header value the gateway sends for body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
