package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log"
	"net"
	"net/http"
	"strings"
)

// HMACHeader carries the request signature on collect calls.
const HMACHeader = "X-Track-HMAC"

// HMACAuth handles HMAC authentication for collection endpoints.
type HMACAuth struct {
	secret      []byte
	publicKey   []byte
	requireHMAC bool
}

// NewHMACAuth creates a new HMAC authentication handler. When publicKey
// is empty, one is derived from the secret.
func NewHMACAuth(secret, publicKey string, requireHMAC bool) *HMACAuth {
	auth := &HMACAuth{
		secret:      []byte(secret),
		requireHMAC: requireHMAC,
	}

	if publicKey != "" {
		if decoded, err := base64.StdEncoding.DecodeString(publicKey); err == nil {
			auth.publicKey = decoded
		} else {
			log.Printf("WARNING: invalid HMAC_PUBLIC_KEY format, using derived key")
		}
	}

	if len(auth.publicKey) == 0 && len(auth.secret) > 0 {
		auth.publicKey = auth.derivePublicKey(auth.secret)
	}

	return auth
}

func (h *HMACAuth) derivePublicKey(secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("track-public-key-derivation"))
	return mac.Sum(nil)[:16]
}

// GetPublicKeyBase64 returns the base64-encoded public key for client use.
func (h *HMACAuth) GetPublicKeyBase64() string {
	if len(h.publicKey) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(h.publicKey)
}

// generateHMAC creates the expected signature for a payload, keyed per
// client IP.
func (h *HMACAuth) generateHMAC(payload []byte, clientIP string) string {
	if len(h.secret) == 0 {
		return ""
	}
	derivedKey := h.deriveClientKey(clientIP)
	mac := hmac.New(sha256.New, derivedKey)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *HMACAuth) deriveClientKey(clientIP string) []byte {
	ip := normalizeIP(clientIP)
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte("client-key:" + ip))
	return mac.Sum(nil)
}

// normalizeIP strips a port from addr, handling bracketed IPv6.
func normalizeIP(addr string) string {
	if strings.HasPrefix(addr, "[") {
		if idx := strings.LastIndex(addr, "]"); idx > 0 {
			return addr[1:idx]
		}
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// VerifyHMAC validates the request signature. Requests pass when HMAC is
// not required.
func (h *HMACAuth) VerifyHMAC(r *http.Request, payload []byte) bool {
	if !h.requireHMAC {
		return true
	}

	if len(h.secret) == 0 {
		log.Printf("HMAC verification failed: no secret configured")
		return false
	}

	providedHMAC := r.Header.Get(HMACHeader)
	if providedHMAC == "" {
		log.Printf("HMAC verification failed: missing %s header", HMACHeader)
		return false
	}

	clientIP := getClientIP(r)
	expectedHMAC := h.generateHMAC(payload, clientIP)

	if !hmac.Equal([]byte(providedHMAC), []byte(expectedHMAC)) {
		log.Printf("HMAC verification failed for IP %s", clientIP)
		return false
	}

	return true
}

// getClientIP extracts the real client IP considering proxies.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}
