package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/gigpay/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the best-clients report as a single-sheet workbook.
func (g *Generator) Generate(report model.BestClientsReport) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Best clients"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Report")
	set("B1", "Best paying clients")
	set("A2", "Period start")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(report.PeriodEnd))
	set("A4", "Clients")
	set("B4", len(report.Clients))

	tableRow := 6
	set(fmt.Sprintf("A%d", tableRow), "Client")
	set(fmt.Sprintf("B%d", tableRow), "Profile ID")
	set(fmt.Sprintf("C%d", tableRow), "Amount paid")

	total := 0.0
	for i, client := range report.Clients {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), client.FullName)
		set(fmt.Sprintf("B%d", row), client.ID.String())
		set(fmt.Sprintf("C%d", row), formatAmount(client.Paid))
		total += client.Paid
	}

	totalRow := tableRow + 1 + len(report.Clients)
	set(fmt.Sprintf("A%d", totalRow), "Total")
	set(fmt.Sprintf("C%d", totalRow), formatAmount(total))

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "C", 16)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
