package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cart represents a shopping cart.
type Cart struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Items     []Item    `json:"items"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Item represents a single line item in the cart. Prices are in major
// currency units (dollars, not cents) because that is how storefront pages
// carry them; conversion to minor units happens only at the payment boundary.
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
	Image string  `json:"image,omitempty"`
}

// Total calculates the total price of all items in the cart.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Qty)
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Qty
	}
	return count
}

// FindItem returns the index of the cart item with the given id.
// Returns -1 if not found.
func (c *Cart) FindItem(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// FormatTotal renders an amount as a display total, e.g. "$25.00".
func FormatTotal(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', 2, 64)
}

// MinorUnits converts a major-unit price to minor currency units
// (price x 100, rounded to the nearest integer).
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// NewItemID generates a unique id for an item added without one.
func NewItemID() string {
	return "p_" + uuid.NewString()[:8]
}

// priceNoise matches everything that is not part of a decimal number, so
// currency symbols and thousands separators can be stripped before parsing.
var priceNoise = regexp.MustCompile(`[^0-9.\-]+`)

// ParsePrice extracts a numeric price from free-form input such as "$12.50"
// or "1,299.00". Unparsable input collapses to 0, and negative values clamp
// to 0; prices are never rejected.
func ParsePrice(raw string) float64 {
	cleaned := priceNoise.ReplaceAllString(raw, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ParseQty coerces free-form quantity input to an integer >= 1.
func ParseQty(raw string) int {
	raw = strings.TrimSpace(raw)
	v, err := strconv.Atoi(raw)
	if err != nil {
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return ClampQty(int(f))
		}
		return 1
	}
	return ClampQty(v)
}

// ClampQty enforces the minimum quantity of 1.
func ClampQty(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}

// Price is a price field that accepts JSON numbers as well as strings
// carrying currency noise. It normalizes through ParsePrice.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		if n < 0 {
			n = 0
		}
		*p = Price(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = Price(ParsePrice(s))
		return nil
	}

	// Anything else (objects, arrays) collapses to 0 rather than failing
	// the whole request.
	*p = 0
	return nil
}

// Quantity is a quantity field that accepts JSON numbers or strings and
// coerces to an integer >= 1. A missing field decodes as the zero value,
// which callers must pass through ClampQty.
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*q = Quantity(ClampQty(n))
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*q = Quantity(ClampQty(int(f)))
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*q = Quantity(ParseQty(s))
		return nil
	}

	*q = 1
	return nil
}
