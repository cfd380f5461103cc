// Package httpx exposes the facade over HTTP: a collect endpoint for
// JSON payloads, a tracking pixel, and health/auth endpoints.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	cfg "github.com/gofanout/track/pkg/config"
	"github.com/gofanout/track/pkg/track"
)

var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00,
}

// Env carries the handlers' dependencies.
type Env struct {
	Cfg      cfg.Config
	Track    *track.Tracker // fan-out target for every accepted payload
	HMACAuth *HMACAuth
}

// Payload is the wire form of one tracking call.
type Payload struct {
	Type   string         `json:"type"` // view | event | purchase | user_property
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"params,omitempty"`

	Purchase *PurchasePayload `json:"purchase,omitempty"`

	Key   string  `json:"key,omitempty"`
	Value *string `json:"value,omitempty"` // null or omitted = clear
}

// PurchasePayload mirrors track.PurchaseInfo on the wire.
type PurchasePayload struct {
	TransactionID string  `json:"transaction_id,omitempty"`
	Price         float64 `json:"price"`
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	Category      string  `json:"category"`
	SKU           string  `json:"sku"`
	Success       bool    `json:"success"`
	Coupon        *string `json:"coupon,omitempty"`
}

func (e Env) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e Env) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (e Env) HMACPublicKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if e.HMACAuth == nil {
		http.Error(w, "HMAC authentication not configured", http.StatusNotFound)
		return
	}

	publicKey := e.HMACAuth.GetPublicKeyBase64()
	if publicKey == "" {
		http.Error(w, "HMAC public key not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"public_key": publicKey,
		"algorithm":  "HMAC-SHA256",
		"header":     HMACHeader,
	})
}

// Pixel logs one view per request: GET /px.gif?v=<view-name>.
func (e Env) Pixel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if e.Cfg.DNTRespect && r.Header.Get("DNT") == "1" {
		writePixel(w, r.Method == http.MethodHead)
		return
	}
	name := r.URL.Query().Get("v")
	if name == "" {
		name = "pageview"
	}
	if e.Track != nil {
		e.Track.LogView(track.NewView(name, nil))
	}
	writePixel(w, r.Method == http.MethodHead)
}

func writePixel(w http.ResponseWriter, headOnly bool) {
	h := w.Header()
	h.Set("Content-Type", "image/gif")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if headOnly {
		return
	}
	_, _ = w.Write(pixelGIF)
}

// Collect accepts a single Payload object or an array of Payloads.
// POST /collect.
func (e Env) Collect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
		return
	}
	if e.Cfg.DNTRespect && r.Header.Get("DNT") == "1" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": 0, "status": "dnt"})
		return
	}

	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, e.Cfg.MaxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if e.HMACAuth != nil && !e.HMACAuth.VerifyHMAC(r, body) {
		http.Error(w, "invalid or missing HMAC signature", http.StatusUnauthorized)
		return
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	accepted := 0
	if len(raw) > 0 && raw[0] == '[' {
		var arr []Payload
		if err := json.Unmarshal(raw, &arr); err != nil {
			http.Error(w, "invalid json array", http.StatusBadRequest)
			return
		}
		for i := range arr {
			if err := e.dispatch(arr[i]); err == nil {
				accepted++
			}
		}
	} else {
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			http.Error(w, "invalid json object", http.StatusBadRequest)
			return
		}
		if err := e.dispatch(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		accepted = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Track-Accepted", strconv.Itoa(accepted))
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"accepted": accepted, "status": "ok"})
}

// dispatch hands one payload to the tracker.
func (e Env) dispatch(p Payload) error {
	if e.Track == nil {
		return nil
	}
	switch p.Type {
	case "view":
		e.Track.LogView(track.NewView(p.Name, p.Params))
	case "event":
		e.Track.LogEvent(track.NewEvent(p.Name, p.Params))
	case "purchase":
		if p.Purchase == nil {
			return fmt.Errorf("purchase payload missing purchase fields")
		}
		e.Track.LogPurchase(track.NewPurchase(track.PurchaseInfo{
			TransactionID: p.Purchase.TransactionID,
			Price:         p.Purchase.Price,
			Name:          p.Purchase.Name,
			Currency:      p.Purchase.Currency,
			Category:      p.Purchase.Category,
			SKU:           p.Purchase.SKU,
			Success:       p.Purchase.Success,
			Coupon:        p.Purchase.Coupon,
		}))
	case "user_property":
		if p.Key == "" {
			return fmt.Errorf("user_property payload missing key")
		}
		e.Track.SetUserProperty(p.Value, p.Key)
	default:
		return fmt.Errorf("unknown payload type %q", p.Type)
	}
	return nil
}
