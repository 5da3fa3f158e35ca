package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Address
	}{
		{
			name: "full address",
			raw:  "123 Main St, Tampa, FL 33601",
			want: Address{Street: "123 Main St", City: "Tampa", State: "FL", Zip: "33601"},
		},
		{
			name: "zip plus four",
			raw:  "500 Ocean Dr, Miami Beach, FL 33139-1234",
			want: Address{Street: "500 Ocean Dr", City: "Miami Beach", State: "FL", Zip: "33139-1234"},
		},
		{
			name: "suite in street",
			raw:  "742 Evergreen Ter, Suite 200, Orlando, FL 32801",
			want: Address{Street: "742 Evergreen Ter, Suite 200", City: "Orlando", State: "FL", Zip: "32801"},
		},
		{
			name: "city state only",
			raw:  "Tampa, FL",
			want: Address{City: "Tampa", State: "FL"},
		},
		{
			name: "no zip",
			raw:  "88 Bayshore Blvd, Clearwater, FL",
			want: Address{Street: "88 Bayshore Blvd", City: "Clearwater", State: "FL"},
		},
		{
			name: "bare city",
			raw:  "Sarasota",
			want: Address{City: "Sarasota"},
		},
		{
			name: "bare street",
			raw:  "1600 Pennsylvania Ave",
			want: Address{Street: "1600 Pennsylvania Ave"},
		},
		{
			name: "empty",
			raw:  "",
			want: Address{},
		},
		{
			name: "whitespace only",
			raw:  "   ",
			want: Address{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.raw))
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"4.5 stars", f(4.5)},
		{"4.5(123)", f(4.5)},
		{"5", f(5)},
		{"3.0 stars (88 reviews)", f(3.0)},
		{"no rating", nil},
		{"", nil},
		{"9.9 stars", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRating(tt.raw))
		})
	}
}

func TestParseReviewCount(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{"(1,234)", n(1234)},
		{"89 reviews", n(89)},
		{"(7)", n(7)},
		{"4.5(123)", n(123)},
		{"3.0 stars (88 reviews)", n(88)},
		{"4.2 stars", nil},
		{"5", nil},
		{"none", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReviewCount(tt.raw))
		})
	}
}

func TestParsePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"(813) 555-0142", "8135550142"},
		{"813-555-0142", "8135550142"},
		{"813.555.0142", "8135550142"},
		{"call 813 555 0142 now", "8135550142"},
		{"555-0142", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePhone(tt.raw))
		})
	}
}

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }
