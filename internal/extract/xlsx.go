package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"otc-analytics/internal/normalize"

	"github.com/xuri/excelize/v2"
)

// Serial day numbers below this are Excel's pre-1900-03-01 Julian range.
const minGregorianSerial = 61

// ReadXLSX reads the first row of sheet as headers and every following row as
// a source row. An empty sheet name selects the first sheet. Cells typed as
// dates or times are rendered day-first so the reconciler sees the same text
// a user would.
func ReadXLSX(path, sheet string) ([]normalize.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: workbook has no sheets", path)
		}
		sheet = sheets[0]
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(grid) == 0 {
		return []normalize.Row{}, nil
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]normalize.Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if blank(cells) {
			continue
		}
		row := make(normalize.Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i >= len(cells) || strings.TrimSpace(cells[i]) == "" {
				row.SetNull(header)
				continue
			}
			row.Set(header, cellText(header, cells[i], date1904))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cellText renders numeric serials of date and HORA columns as text.
func cellText(header, raw string, date1904 bool) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial < 0 {
		return raw
	}
	switch {
	case normalize.DateColumn(header):
		if serial < minGregorianSerial {
			return raw
		}
		t, err := excelize.ExcelDateToTime(math.Floor(serial), date1904)
		if err != nil {
			return raw
		}
		return t.Format("02/01/2006")
	case strings.HasPrefix(header, "HORA"):
		return clock(serial)
	default:
		return raw
	}
}

// clock formats the fractional day of a serial as HH:MM:SS.
func clock(serial float64) string {
	_, frac := math.Modf(serial)
	secs := int(math.Round(frac * 86400))
	if secs >= 86400 {
		secs = 86399
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
