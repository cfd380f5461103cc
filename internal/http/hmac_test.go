package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.1:8080", "192.168.1.1"},
		{"192.168.1.1", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"::1", "::1"},
		{"example.com:443", "example.com"},
	}
	for _, tt := range tests {
		if got := normalizeIP(tt.addr); got != tt.want {
			t.Errorf("normalizeIP(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		req.Header.Set("X-Real-IP", "203.0.113.8")
		if got := getClientIP(req); got != "203.0.113.7" {
			t.Errorf("got %q, want 203.0.113.7", got)
		}
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.8")
		if got := getClientIP(req); got != "203.0.113.8" {
			t.Errorf("got %q, want 203.0.113.8", got)
		}
	})

	t.Run("falls back to RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if got := getClientIP(req); got != req.RemoteAddr {
			t.Errorf("got %q, want %q", got, req.RemoteAddr)
		}
	})
}

func TestNewHMACAuth(t *testing.T) {
	t.Run("derives public key from secret", func(t *testing.T) {
		auth := NewHMACAuth("secret", "", false)
		if auth.GetPublicKeyBase64() == "" {
			t.Error("expected derived public key")
		}
	})

	t.Run("derivation is deterministic", func(t *testing.T) {
		a := NewHMACAuth("secret", "", false)
		b := NewHMACAuth("secret", "", false)
		if a.GetPublicKeyBase64() != b.GetPublicKeyBase64() {
			t.Error("same secret should derive same public key")
		}
	})

	t.Run("accepts explicit base64 public key", func(t *testing.T) {
		auth := NewHMACAuth("secret", "cHVibGljLWtleS1ieXRlcw==", false)
		if auth.GetPublicKeyBase64() != "cHVibGljLWtleS1ieXRlcw==" {
			t.Errorf("public key = %q", auth.GetPublicKeyBase64())
		}
	})

	t.Run("no secret means no key", func(t *testing.T) {
		auth := NewHMACAuth("", "", false)
		if auth.GetPublicKeyBase64() != "" {
			t.Error("expected empty public key without secret")
		}
	})
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"type":"event","name":"tap"}`)

	t.Run("passes when not required", func(t *testing.T) {
		auth := NewHMACAuth("secret", "", false)
		req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(""))
		if !auth.VerifyHMAC(req, body) {
			t.Error("optional HMAC should pass unsigned requests")
		}
	})

	t.Run("rejects missing header when required", func(t *testing.T) {
		auth := NewHMACAuth("secret", "", true)
		req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(""))
		if auth.VerifyHMAC(req, body) {
			t.Error("unsigned request should fail")
		}
	})

	t.Run("rejects wrong signature", func(t *testing.T) {
		auth := NewHMACAuth("secret", "", true)
		req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(""))
		req.Header.Set(HMACHeader, "deadbeef")
		if auth.VerifyHMAC(req, body) {
			t.Error("wrong signature should fail")
		}
	})

	t.Run("accepts correct signature", func(t *testing.T) {
		auth := NewHMACAuth("secret", "", true)
		req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(""))
		req.Header.Set(HMACHeader, auth.generateHMAC(body, getClientIP(req)))
		if !auth.VerifyHMAC(req, body) {
			t.Error("correct signature should pass")
		}
	})

	t.Run("signature is IP-bound", func(t *testing.T) {
		auth := NewHMACAuth("secret", "", true)
		sig := auth.generateHMAC(body, "203.0.113.7")
		req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(""))
		req.Header.Set(HMACHeader, sig)
		// httptest RemoteAddr is 192.0.2.1, not 203.0.113.7
		if auth.VerifyHMAC(req, body) {
			t.Error("signature for another IP should fail")
		}
	})
}
