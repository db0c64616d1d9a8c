package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Track is an immutable catalog entry. Price is carried in whole currency
// units (the storefront lists ₹699, not 69900 paise); gateway minor units are
// derived at charge time.
type Track struct {
	ID              int64    `json:"id" validate:"required,gt=0"`
	Title           string   `json:"title" validate:"required"`
	Producer        string   `json:"producer" validate:"required"`
	BPM             string   `json:"bpm,omitempty"`
	Key             string   `json:"key,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Image           string   `json:"image,omitempty"`
	AudioURL        string   `json:"audio_url,omitempty"`
	Price           int64    `json:"price" validate:"gte=0"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
}

// ParsePrice converts a listed price string ("699", "699.00") into whole
// currency units. Fractional unit prices are rejected; the catalog has never
// listed one and silently rounding money is worse than failing the load.
func ParsePrice(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("price is empty")
	}
	dec, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", value, err)
	}
	if dec.IsNegative() {
		return 0, fmt.Errorf("price %q is negative", value)
	}
	if !dec.IsInteger() {
		return 0, fmt.Errorf("price %q has fractional units", value)
	}
	return dec.IntPart(), nil
}
