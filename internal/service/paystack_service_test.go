package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"amount":2000000,"reference":"PSK-1"}}`)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			body:      body,
			signature: signBody(secret, body),
			want:      true,
		},
		{
			name:      "wrong secret",
			secret:    secret,
			body:      body,
			signature: signBody("sk_test_other", body),
			want:      false,
		},
		{
			name:      "tampered body",
			secret:    secret,
			body:      []byte(`{"event":"charge.success","data":{"amount":9000000,"reference":"PSK-1"}}`),
			signature: signBody(secret, body),
			want:      false,
		},
		{
			name:      "empty signature",
			secret:    secret,
			body:      body,
			signature: "",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyWebhookSignature(tt.secret, tt.body, tt.signature); got != tt.want {
				t.Errorf("VerifyWebhookSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
