package money

import "testing"

func TestComputeSubtotal(t *testing.T) {
	items := []LineItem{
		{ProductName: "Widget", Quantity: 2, UnitPrice: 1500},
		{ProductName: "Gadget", Quantity: 1, UnitPrice: 999},
	}

	fin := Compute(items, 0)
	if fin.Subtotal != 3999 {
		t.Fatalf("expected subtotal 3999, got %d", fin.Subtotal)
	}
	if fin.TaxAmount != 0 {
		t.Fatalf("expected tax 0, got %d", fin.TaxAmount)
	}
	if fin.Total != 3999 {
		t.Fatalf("expected total 3999, got %d", fin.Total)
	}
}

func TestComputeFivePercent(t *testing.T) {
	items := []LineItem{{Quantity: 1, UnitPrice: 10000}}

	fin := Compute(items, 500)
	if fin.Subtotal != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", fin.Subtotal)
	}
	if fin.TaxAmount != 500 {
		t.Fatalf("expected tax 500, got %d", fin.TaxAmount)
	}
	if fin.Total != 10500 {
		t.Fatalf("expected total 10500, got %d", fin.Total)
	}
}

func TestComputeEmptyItems(t *testing.T) {
	fin := Compute(nil, 500)
	if fin.Subtotal != 0 || fin.TaxAmount != 0 || fin.Total != 0 {
		t.Fatalf("expected zero financials, got %+v", fin)
	}
}

func TestComputeAdditivity(t *testing.T) {
	cases := []struct {
		qty, price, rate int64
	}{
		{1, 1, 1},
		{3, 333, 525},
		{7, 999, 850},
		{1000, 12345, 1},
		{1, 10000, 9999},
	}
	for _, tc := range cases {
		fin := Compute([]LineItem{{Quantity: tc.qty, UnitPrice: tc.price}}, tc.rate)
		if fin.Total != fin.Subtotal+fin.TaxAmount {
			t.Fatalf("qty=%d price=%d rate=%d: total %d != subtotal %d + tax %d",
				tc.qty, tc.price, tc.rate, fin.Total, fin.Subtotal, fin.TaxAmount)
		}
		if fin.Subtotal != tc.qty*tc.price {
			t.Fatalf("qty=%d price=%d: subtotal %d != %d", tc.qty, tc.price, fin.Subtotal, tc.qty*tc.price)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	items := []LineItem{
		{Quantity: 3, UnitPrice: 3333},
		{Quantity: 7, UnitPrice: 101},
	}
	first := Compute(items, 525)
	for i := 0; i < 1000; i++ {
		if got := Compute(items, 525); got != first {
			t.Fatalf("iteration %d diverged: %+v != %+v", i, got, first)
		}
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// subtotal 101, 5% -> 5.05 cents of tax scaled: 101*500 = 50500,
	// 50500/10000 = 5.05 -> rounds to 5.
	fin := Compute([]LineItem{{Quantity: 1, UnitPrice: 101}}, 500)
	if fin.TaxAmount != 5 {
		t.Fatalf("expected tax 5, got %d", fin.TaxAmount)
	}

	// subtotal 10, 5% -> exactly 0.5 -> rounds up to 1.
	fin = Compute([]LineItem{{Quantity: 1, UnitPrice: 10}}, 500)
	if fin.TaxAmount != 1 {
		t.Fatalf("expected half to round up to 1, got %d", fin.TaxAmount)
	}
}

func TestComputeRoundsOnceOnAggregate(t *testing.T) {
	// Three lines of 10 cents at 5%: per-line rounding would give 3
	// (1 cent each); aggregate rounding gives round(30*0.05) = 2.
	items := []LineItem{
		{Quantity: 1, UnitPrice: 10},
		{Quantity: 1, UnitPrice: 10},
		{Quantity: 1, UnitPrice: 10},
	}
	fin := Compute(items, 500)
	if fin.TaxAmount != 2 {
		t.Fatalf("expected aggregate-rounded tax 2, got %d", fin.TaxAmount)
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		0:      0,
		19.99:  1999,
		0.005:  1,
		100:    10000,
		1.105:  111, // float repr of 1.105 is slightly above .5
		2.675:  267, // and 2.675 sits slightly below it
		999.99: 99999,
	}
	for in, want := range cases {
		if got := ToMinorUnits(in); got != want {
			t.Fatalf("ToMinorUnits(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestTaxRateRoundTrip(t *testing.T) {
	for _, p := range []float64{0, 5, 5.25, 8.5, 12.75, 99.99} {
		units := ToTaxRateUnits(p)
		if back := ToPercent(units); back != p {
			t.Fatalf("round trip %v -> %d -> %v", p, units, back)
		}
	}
	if units := ToTaxRateUnits(5.25); units != 525 {
		t.Fatalf("expected 525, got %d", units)
	}
}

func TestFormatMinorUnits(t *testing.T) {
	cases := map[int64]string{
		0:         "$0.00",
		5:         "$0.05",
		1999:      "$19.99",
		1234550:   "$12,345.50",
		100000000: "$1,000,000.00",
		-50:       "-$0.50",
		-1999:     "-$19.99",
		-1234550:  "-$12,345.50",
	}
	for in, want := range cases {
		if got := FormatMinorUnits(in, "$"); got != want {
			t.Fatalf("FormatMinorUnits(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	cases := map[int64]string{
		0:    "0%",
		500:  "5%",
		525:  "5.25%",
		850:  "8.5%",
		1000: "10%",
	}
	for in, want := range cases {
		if got := FormatPercent(in); got != want {
			t.Fatalf("FormatPercent(%d) = %q, want %q", in, got, want)
		}
	}
}
