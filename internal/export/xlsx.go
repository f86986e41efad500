package export

import (
	"github.com/xelth-com/eckpunchgo/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Punches"

func writeXLSX(path string, punches []models.Punch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, p := range punches {
		cells := row(p)
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		values[0] = p.ID
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return f.SaveAs(path)
}
