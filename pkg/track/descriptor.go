package track

import "github.com/google/uuid"

// View describes one screen or page shown to the user. Any value with a
// name and optional parameters qualifies; apps with a fixed catalog of
// screens can implement this on their own types.
type View interface {
	Name() string
	Parameters() map[string]any // nil when absent
}

// Event describes one discrete user action. Same shape as View.
type Event interface {
	Name() string
	Parameters() map[string]any // nil when absent
}

// Purchase describes one commerce transaction.
type Purchase interface {
	TransactionID() string
	Price() float64
	Name() string
	Currency() string
	Category() string
	SKU() string
	Success() bool
	Coupon() *string // nil when absent
}

type view struct {
	name   string
	params map[string]any
}

func (v view) Name() string               { return v.name }
func (v view) Parameters() map[string]any { return v.params }

// NewView builds an immutable View. Pass nil params for "no parameters".
func NewView(name string, params map[string]any) View {
	return view{name: name, params: params}
}

type event struct {
	name   string
	params map[string]any
}

func (e event) Name() string               { return e.name }
func (e event) Parameters() map[string]any { return e.params }

// NewEvent builds an immutable Event. Pass nil params for "no parameters".
func NewEvent(name string, params map[string]any) Event {
	return event{name: name, params: params}
}

// PurchaseInfo carries the fields for NewPurchase. Leave TransactionID
// empty to get a freshly generated unique id; leave Coupon nil for
// "no coupon".
type PurchaseInfo struct {
	TransactionID string
	Price         float64
	Name          string
	Currency      string
	Category      string
	SKU           string
	Success       bool
	Coupon        *string
}

type purchase struct {
	info PurchaseInfo
}

func (p purchase) TransactionID() string { return p.info.TransactionID }
func (p purchase) Price() float64        { return p.info.Price }
func (p purchase) Name() string          { return p.info.Name }
func (p purchase) Currency() string      { return p.info.Currency }
func (p purchase) Category() string      { return p.info.Category }
func (p purchase) SKU() string           { return p.info.SKU }
func (p purchase) Success() bool         { return p.info.Success }
func (p purchase) Coupon() *string       { return p.info.Coupon }

// NewPurchase builds an immutable Purchase, generating a transaction id
// when the caller supplies none.
func NewPurchase(info PurchaseInfo) Purchase {
	if info.TransactionID == "" {
		info.TransactionID = uuid.New().String()
	}
	return purchase{info: info}
}
