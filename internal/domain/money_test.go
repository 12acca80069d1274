package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "999.00", want: "999.00"},
		{name: "no fraction", input: "1250", want: "1250.00"},
		{name: "single fraction digit", input: "49.5", want: "49.50"},
		{name: "whitespace", input: " 10.00 ", want: "10.00"},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "ten", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5.00", wantErr: true},
		{name: "three fraction digits", input: "1.005", wantErr: true},
		{name: "too large", input: "123456789.00", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, err := ParseAmount(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.input, err)
			}
			if got := FormatAmount(amount); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{input: "1998.00", want: 199800},
		{input: "0.01", want: 1},
		{input: "999", want: 99900},
		{input: "49.50", want: 4950},
	}

	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.input)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.input, err)
		}
		if got := MinorUnits(amount); got != tc.want {
			t.Fatalf("MinorUnits(%s) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestOrderItemLineTotal(t *testing.T) {
	price, _ := decimal.NewFromString("999.00")
	item := OrderItem{ProductID: "prd_1", Quantity: 2, Price: price}
	if got := FormatAmount(item.LineTotal()); got != "1998.00" {
		t.Fatalf("expected 1998.00 got %s", got)
	}
}
