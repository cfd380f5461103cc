package main

import (
	"log"

	"github.com/google/uuid"

	"github.com/gofanout/track/pkg/track"
)

// sampleViews returns the screens of a short fictional session.
func sampleViews() []track.View {
	return []track.View{
		track.NewView("home", map[string]any{
			"referrer": "https://google.com",
			"tab":      "feed",
		}),
		track.NewView("pricing", nil),
		track.NewView("checkout", map[string]any{"step": 1}),
	}
}

// sampleEvents returns the actions of the same session.
func sampleEvents() []track.Event {
	visitor := "visitor-" + uuid.New().String()[:8]
	return []track.Event{
		track.NewEvent("signup_started", map[string]any{"visitor": visitor}),
		track.NewEvent("plan_selected", map[string]any{
			"visitor": visitor,
			"plan":    "pro",
		}),
		track.NewEvent("checkout_completed", map[string]any{"visitor": visitor}),
	}
}

// samplePurchases returns one defaulted purchase and one fully specified.
func samplePurchases() []track.Purchase {
	coupon := "WELCOME10"
	return []track.Purchase{
		track.NewPurchase(track.PurchaseInfo{
			Price:    19.90,
			Name:     "Pro Plan",
			Currency: "USD",
			Category: "subscription",
			SKU:      "pro-monthly",
			Success:  true,
		}),
		track.NewPurchase(track.PurchaseInfo{
			TransactionID: uuid.New().String(),
			Price:         199.00,
			Name:          "Pro Plan Annual",
			Currency:      "USD",
			Category:      "subscription",
			SKU:           "pro-annual",
			Success:       true,
			Coupon:        &coupon,
		}),
	}
}

// runDemo pushes the sample session through the tracker: views, events,
// purchases, then a property set and a property clear.
func runDemo(t *track.Tracker) {
	log.Printf("demo: emitting sample tracking calls to %d provider(s)", len(t.Providers()))

	for _, v := range sampleViews() {
		t.LogView(v)
	}
	for _, e := range sampleEvents() {
		t.LogEvent(e)
	}
	for _, p := range samplePurchases() {
		t.LogPurchase(p)
	}

	plan := "pro"
	t.SetUserProperty(&plan, "plan")
	t.SetUserProperty(nil, "temp_flag")

	log.Printf("demo: done")
}
