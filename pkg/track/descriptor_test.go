package track

import "testing"

func TestNewView(t *testing.T) {
	t.Run("carries name and parameters", func(t *testing.T) {
		v := NewView("checkout", map[string]any{"step": 2})
		if v.Name() != "checkout" {
			t.Errorf("name = %q, want checkout", v.Name())
		}
		if v.Parameters()["step"] != 2 {
			t.Errorf("step = %v, want 2", v.Parameters()["step"])
		}
	})

	t.Run("parameters default to absent", func(t *testing.T) {
		v := NewView("home", nil)
		if v.Parameters() != nil {
			t.Errorf("parameters = %v, want nil", v.Parameters())
		}
	})
}

func TestNewEvent(t *testing.T) {
	t.Run("parameters default to absent", func(t *testing.T) {
		e := NewEvent("tap", nil)
		if e.Parameters() != nil {
			t.Errorf("parameters = %v, want nil", e.Parameters())
		}
	})
}

func TestNewPurchase(t *testing.T) {
	t.Run("keeps an explicit transaction id", func(t *testing.T) {
		p := NewPurchase(PurchaseInfo{TransactionID: "tx-42", Price: 9.99})
		if p.TransactionID() != "tx-42" {
			t.Errorf("transaction id = %q, want tx-42", p.TransactionID())
		}
	})

	t.Run("generates a transaction id when missing", func(t *testing.T) {
		p := NewPurchase(PurchaseInfo{Price: 9.99})
		if p.TransactionID() == "" {
			t.Error("transaction id should be generated")
		}
	})

	t.Run("generated ids do not collide", func(t *testing.T) {
		a := NewPurchase(PurchaseInfo{})
		b := NewPurchase(PurchaseInfo{})
		if a.TransactionID() == b.TransactionID() {
			t.Errorf("both purchases got id %q", a.TransactionID())
		}
	})

	t.Run("coupon defaults to absent", func(t *testing.T) {
		p := NewPurchase(PurchaseInfo{})
		if p.Coupon() != nil {
			t.Errorf("coupon = %v, want nil", p.Coupon())
		}
	})

	t.Run("carries commerce fields", func(t *testing.T) {
		coupon := "WELCOME10"
		p := NewPurchase(PurchaseInfo{
			Price:    19.90,
			Name:     "Pro Plan",
			Currency: "USD",
			Category: "subscription",
			SKU:      "pro-monthly",
			Success:  true,
			Coupon:   &coupon,
		})
		if p.Price() != 19.90 {
			t.Errorf("price = %v, want 19.90", p.Price())
		}
		if p.Currency() != "USD" || p.Category() != "subscription" || p.SKU() != "pro-monthly" {
			t.Errorf("commerce fields = %q/%q/%q", p.Currency(), p.Category(), p.SKU())
		}
		if !p.Success() {
			t.Error("success = false, want true")
		}
		if p.Coupon() == nil || *p.Coupon() != "WELCOME10" {
			t.Errorf("coupon = %v, want WELCOME10", p.Coupon())
		}
	})
}

// catalogEvent shows the catalog pattern: an app-defined type satisfying
// the Event contract directly.
type catalogEvent string

func (c catalogEvent) Name() string               { return string(c) }
func (c catalogEvent) Parameters() map[string]any { return nil }

func TestCatalogDescriptors(t *testing.T) {
	p := newRecordingProvider("a")
	tr := NewTracker()
	tr.Register(p)

	tr.LogEvent(catalogEvent("onboarding_done"))

	if len(p.calls) != 1 || p.calls[0] != "a:event:onboarding_done" {
		t.Errorf("calls = %v", p.calls)
	}
}
