package webhooks

import (
	"strings"
	"testing"
)

func TestSign(t *testing.T) {
	secret := "secret"
	payload := []byte("payload")

	// Calculated using: echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	expected := "b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"

	got := Sign(secret, payload)

	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"event":"order.created","data":{"id":1}}`)
	sig := Sign("shh", payload)

	tests := []struct {
		name      string
		signature string
		want      bool
	}{
		{"plain hex", sig, true},
		{"prefixed", "sha256=" + sig, true},
		{"upper case", strings.ToUpper(sig), true},
		{"wrong secret", Sign("other", payload), false},
		{"truncated", sig[:10], false},
		{"not hex", "zz" + sig[2:], false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify("shh", payload, tt.signature); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}
