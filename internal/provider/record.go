// Package provider contains the reference Provider implementations that
// ship with the facade: NDJSON log, Kafka and Postgres. They all flatten
// descriptors into one Record envelope before writing.
package provider

import (
	"time"

	"github.com/google/uuid"

	"github.com/gofanout/track/pkg/track"
)

// Record kinds.
const (
	KindView         = "view"
	KindEvent        = "event"
	KindPurchase     = "purchase"
	KindUserProperty = "user_property"
)

// PurchaseRecord is the wire form of a Purchase descriptor.
type PurchaseRecord struct {
	TransactionID string  `json:"transaction_id"`
	Price         float64 `json:"price"`
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	Category      string  `json:"category"`
	SKU           string  `json:"sku"`
	Success       bool    `json:"success"`
	Coupon        *string `json:"coupon,omitempty"`
}

// Record is the envelope the I/O providers serialize. One record per
// tracking call.
type Record struct {
	RecordID string         `json:"record_id"`
	TS       string         `json:"ts"` // RFC3339
	Kind     string         `json:"kind"`
	Name     string         `json:"name,omitempty"`
	Params   map[string]any `json:"params,omitempty"`

	Purchase *PurchaseRecord `json:"purchase,omitempty"`

	// PropertyCleared marks an explicit "clear this property" call, so a
	// cleared property stays distinguishable from one never set.
	PropertyKey     string  `json:"property_key,omitempty"`
	PropertyValue   *string `json:"property_value,omitempty"`
	PropertyCleared bool    `json:"property_cleared,omitempty"`
}

func newRecord(kind string) Record {
	return Record{
		RecordID: uuid.New().String(),
		TS:       time.Now().UTC().Format(time.RFC3339),
		Kind:     kind,
	}
}

func viewRecord(v track.View) Record {
	r := newRecord(KindView)
	r.Name = v.Name()
	r.Params = v.Parameters()
	return r
}

func eventRecord(e track.Event) Record {
	r := newRecord(KindEvent)
	r.Name = e.Name()
	r.Params = e.Parameters()
	return r
}

func purchaseRecord(p track.Purchase) Record {
	r := newRecord(KindPurchase)
	r.Name = p.Name()
	r.Purchase = &PurchaseRecord{
		TransactionID: p.TransactionID(),
		Price:         p.Price(),
		Name:          p.Name(),
		Currency:      p.Currency(),
		Category:      p.Category(),
		SKU:           p.SKU(),
		Success:       p.Success(),
		Coupon:        p.Coupon(),
	}
	return r
}

func propertyRecord(value *string, key string) Record {
	r := newRecord(KindUserProperty)
	r.PropertyKey = key
	r.PropertyValue = value
	r.PropertyCleared = value == nil
	return r
}
