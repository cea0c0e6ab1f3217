package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"otc-analytics/internal/normalize"
	"otc-analytics/internal/orders"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, name string, grid [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range grid {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeWorkbook(t, "dados.xlsx", [][]any{
		{" FILIAL ", "PEDIDO", "DATA GERACAO", "HORA GERACAO DO PEDIDO", "SITUACAO DO PEDIDO"},
		{101, "5521", time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC), float64(14*3600+2*60) / 86400, 4},
		{nil, nil, nil, nil, nil},
		{102, "5522", "20/06/2025", "9:43"},
	})

	rows, err := ReadXLSX(path, "")
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadXLSX() = %d rows, want 2", len(rows))
	}

	first := rows[0]
	checks := map[string]string{
		"FILIAL":                 "101",
		"PEDIDO":                 "5521",
		"DATA GERACAO":           "19/06/2025",
		"HORA GERACAO DO PEDIDO": "14:02:00",
		"SITUACAO DO PEDIDO":     "4",
	}
	for field, want := range checks {
		if v := first[field]; v == nil || *v != want {
			t.Errorf("%s = %v, want %q", field, v, want)
		}
	}

	second := rows[1]
	if v := second["HORA GERACAO DO PEDIDO"]; v == nil || *v != "9:43" {
		t.Errorf("text time = %v, want untouched", v)
	}
	if v, ok := second["SITUACAO DO PEDIDO"]; !ok || v != nil {
		t.Errorf("missing trailing cell = %v (present %v), want explicit null", v, ok)
	}

	// The rows feed the extract schema end to end.
	rec, err := normalize.Normalize(normalize.Extract, first)
	if err != nil {
		t.Fatal(err)
	}
	if got := rec.Milestones[orders.OrderCreated]; got.Date != "19/06/2025" || got.Time != "14:02:00" {
		t.Errorf("OrderCreated = %+v", got)
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		header string
		raw    string
		want   string
	}{
		{"DATA GERACAO", "45827", "19/06/2025"},
		{"DATA GERACAO", "45827.75", "19/06/2025"},
		{"DATA GERACAO", "366", "31/12/1900"},
		{"DATA GERACAO", "19/06/2025", "19/06/2025"},
		{"HORA GERACAO DO PEDIDO", "0.5", "12:00:00"},
		{"HORA GERACAO DO PEDIDO", "45827.75", "18:00:00"},
		{"HORA GERACAO DO PEDIDO", "0", "00:00:00"},
		{"HORA GERACAO DO PEDIDO", ":", ":"},
		{"VENCIMENTO ORIGINAL DO TITULO", "45827", "19/06/2025"},
		{"INICIO FATURAMENTO", "45827", "19/06/2025"},
		{"FIM FATURAMENTO", "45828.25", "20/06/2025"},
		{"DATA DO BLOQUEIO", "45827", "19/06/2025"},
		{"PEDIDO", "5521", "5521"},
		{"CODIGO PRODUTO", "45827", "45827"},
	}
	for _, tt := range tests {
		if got := cellText(tt.header, tt.raw, false); got != tt.want {
			t.Errorf("cellText(%q, %q) = %q, want %q", tt.header, tt.raw, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	xmlPath := filepath.Join(dir, "response.xml")
	payload := `<r xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><retorno><CFilial>1</CFilial><CDataGerNF xsi:nil="true"/></retorno></r>`
	if err := os.WriteFile(xmlPath, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}
	rows, err := LoadFile(xmlPath)
	if err != nil {
		t.Fatalf("LoadFile(xml) error = %v", err)
	}
	if len(rows) != 1 || *rows[0]["CFilial"] != "1" {
		t.Errorf("LoadFile(xml) = %v", rows)
	}
	if SchemaFor(xmlPath) != normalize.Webservice {
		t.Errorf("SchemaFor(xml) = %v", SchemaFor(xmlPath))
	}

	emptyPath := filepath.Join(dir, "empty.xml")
	if err := os.WriteFile(emptyPath, []byte("<r/>"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(emptyPath); !errors.Is(err, ErrNoRecords) {
		t.Errorf("LoadFile(empty) error = %v, want ErrNoRecords", err)
	}

	if _, err := LoadFile(filepath.Join(dir, "dados.csv")); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("LoadFile(csv) error = %v, want ErrUnsupportedFile", err)
	}
	if SchemaFor("dados.xlsx") != normalize.Extract {
		t.Errorf("SchemaFor(xlsx) = %v", SchemaFor("dados.xlsx"))
	}
}

func TestLoadKeepsArgumentOrder(t *testing.T) {
	var paths []string
	for _, pedido := range []string{"1", "2", "3", "4", "5"} {
		paths = append(paths, writeWorkbook(t, "part"+pedido+".xlsx", [][]any{
			{"FILIAL", "PEDIDO"},
			{"1", pedido},
		}))
	}

	parts, err := Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(parts) != 5 {
		t.Fatalf("Load() = %d parts, want 5", len(parts))
	}
	for i, rows := range parts {
		want := []string{"1", "2", "3", "4", "5"}[i]
		if len(rows) != 1 {
			t.Fatalf("part %d = %d rows, want 1", i, len(rows))
		}
		if got := *rows[0]["PEDIDO"]; got != want {
			t.Errorf("row[%d] PEDIDO = %q, want %q", i, got, want)
		}
	}

	if _, err := Load(context.Background(), append(paths, "missing.xlsx")); err == nil {
		t.Error("Load() should fail when a file is missing")
	}
}
