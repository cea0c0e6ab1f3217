package visuals

import (
	"bytes"
	"fmt"

	"otc-analytics/internal/codes"
	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/stats"

	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet = "Pedidos"
	stagesSheet = "Etapas"
)

// Workbook renders a run as an XLSX file: one row per order and one row per stage.
func Workbook(res *pipeline.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(stagesSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	// 1. Orders
	headers := []string{"Filial", "Pedido", "Situação", "Bloqueado", "Registros"}
	for _, m := range orders.Milestones {
		headers = append(headers, m.Label())
	}
	for _, s := range orders.Stages {
		headers = append(headers, shortStage(s)+" (h)", shortStage(s)+" Linha de Base (h)", shortStage(s))
	}
	writeHeader(f, ordersSheet, headers, headerStyle)

	for i, row := range res.Orders {
		values := []any{row.Branch, row.OrderNumber, row.Situations[codes.OrderSituation], row.Blocked, row.Records}
		for _, mv := range row.Milestones {
			if mv.Timestamp != nil {
				values = append(values, mv.Timestamp.Format("02/01/2006 15:04"))
			} else {
				values = append(values, nil)
			}
		}
		for _, sv := range row.Stages {
			values = append(values, number(sv.Duration), number(sv.Baseline), sv.Classification.Label())
		}
		writeRow(f, ordersSheet, i+2, values)
	}

	// 2. Stages
	writeHeader(f, stagesSheet, []string{"Etapa", "Dentro", "Acima", "Insuficiente", "Pendentes", "Mediana (h)", "Média da Linha de Base (h)", "Alerta"}, headerStyle)
	for i, ss := range res.Summary.Stages {
		writeRow(f, stagesSheet, i+2, []any{
			ss.Stage.Label(),
			ss.Counts[stats.WithinBaseline],
			ss.Counts[stats.ExceedsBaseline],
			ss.Counts[stats.InsufficientData],
			ss.Pending,
			number(ss.Median),
			number(ss.MeanBaseline),
			string(ss.Alert),
		})
	}

	// 3. Freeze the header rows
	for _, sheet := range []string{ordersSheet, stagesSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return nil, err
		}
	}
	f.SetColWidth(ordersSheet, "A", "B", 12)
	f.SetColWidth(stagesSheet, "A", "A", 40)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, name)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
		f.SetCellValue(sheet, cell, v)
	}
}

func number(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
