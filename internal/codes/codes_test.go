package codes

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		domain Domain
		code   string
		want   string
	}{
		{"OrderInteger", OrderSituation, "1", "Aberto Total"},
		{"OrderFloat", OrderSituation, "4.0", "Liquidado"},
		{"OrderPadded", OrderSituation, " 9 ", "Fechado"},
		{"OrderUnknown", OrderSituation, "42", Unknown},
		{"OrderFraction", OrderSituation, "1.5", Unknown},
		{"ItemPrepGap", ItemPrep, "7", Unknown},
		{"ItemPrepKnown", ItemPrep, "8", "Sem Estoque"},
		{"LoadLowercase", Load, "f", "Fechado"},
		{"InvoiceKnown", Invoice, "4", "Documento Fiscal Emitido (Saida)"},
		{"TitleKnown", Title, "LQ", "Liquidado Normal"},
		{"TitleLowercase", Title, "pe", "Aberto PE (Pagamento Eletrônico)"},
		{"TitleUnknown", Title, "ZZ", Unknown},
		{"Empty", Title, "", Unknown},
		{"UnknownDomain", Domain("nope"), "1", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lookup(tt.domain, tt.code); got != tt.want {
				t.Errorf("Lookup(%v, %q) = %q, want %q", tt.domain, tt.code, got, tt.want)
			}
		})
	}
}

func TestEveryDomainHasTable(t *testing.T) {
	for _, d := range Domains {
		tbl, ok := Get(d)
		if !ok {
			t.Errorf("Get(%v) missing", d)
			continue
		}
		if tbl.Domain() != d {
			t.Errorf("table domain = %v, want %v", tbl.Domain(), d)
		}
		for _, code := range tbl.Codes() {
			if !tbl.Known(code) || tbl.Label(code) == Unknown {
				t.Errorf("%v: code %q does not resolve", d, code)
			}
		}
	}
}

func TestTitleTableSize(t *testing.T) {
	tbl, _ := Get(Title)
	if got := len(tbl.Codes()); got != 26 {
		t.Errorf("title codes = %d, want 26", got)
	}
}
