package ingest

import "testing"

func TestParseBudget_LabeledReferenceValue(t *testing.T) {
	text := "Garantía de seriedad: S/ 25,000.00. Valor referencial: S/ 1'250,000.50 incluido IGV."

	budget, currency := parseBudget(text, "")
	if budget != 1250000.50 {
		t.Fatalf("expected 1250000.50, got %f", budget)
	}
	if currency != "PEN" {
		t.Fatalf("expected PEN, got %s", currency)
	}
}

func TestParseBudget_EuropeanGrouping(t *testing.T) {
	budget, currency := parseBudget("Presupuesto estimado: 2.500.000,75 EUR", "")
	if budget != 2500000.75 {
		t.Fatalf("expected 2500000.75, got %f", budget)
	}
	if currency != "EUR" {
		t.Fatalf("expected EUR, got %s", currency)
	}
}

func TestParseBudget_UnlabeledTakesLargest(t *testing.T) {
	// Item counts and durations must not win over the contract value.
	budget, _ := parseBudget("12 meses de servicio, 3 items, monto total US$ 480,000.00", "")
	if budget != 480000 {
		t.Fatalf("expected 480000, got %f", budget)
	}
}

func TestParseBudget_NoAmount(t *testing.T) {
	budget, currency := parseBudget("Consultar las bases del proceso", "PEN")
	if budget != 0 {
		t.Fatalf("expected 0, got %f", budget)
	}
	if currency != "" {
		t.Fatalf("expected empty currency, got %s", currency)
	}
}

func TestParseBudget_DefaultCurrencyFallback(t *testing.T) {
	_, currency := parseBudget("Monto referencial: 350,000.00", "USD")
	if currency != "USD" {
		t.Fatalf("expected USD fallback, got %s", currency)
	}
}

func TestParseAmountToken_Conventions(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1,234,567.89", 1234567.89},
		{"1.234.567,89", 1234567.89},
		{"1'234,567.89", 1234567.89},
		{"480000", 480000},
		{"2.500.000", 2500000},
		{"1500,50", 1500.50},
	}
	for _, c := range cases {
		got, ok := parseAmountToken(c.in)
		if !ok {
			t.Fatalf("parseAmountToken(%q) failed", c.in)
		}
		if got != c.want {
			t.Fatalf("parseAmountToken(%q) = %f, want %f", c.in, got, c.want)
		}
	}
}
