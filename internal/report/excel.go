package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Excel renders entries as a downloadable workbook. Hours are rounded to
// two decimals here, at presentation time only.
func Excel(kind Kind, start, end time.Time, entries []Entry) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	title := fmt.Sprintf("%s report %s - %s", kind, start.Format("2006-01-02"), end.Format("2006-01-02"))
	_ = f.SetCellValue(sheet, "A1", title)

	headers := []string{"Employee ID", "Name", "Role", "Check-ins", "Total Hours"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, header)
	}

	for idx, entry := range entries {
		row := idx + 3
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.EmployeeID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.Name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.Role)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), entry.TotalCheckIns)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("%.2f", entry.TotalHours))
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buffer.Bytes(), nil
}
