package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is the in-memory form of an uploaded workbook's active sheet: the
// header row plus all data rows. Reading the file once up front keeps the
// preview/commit handshake from depending on a consumable stream.
type Sheet struct {
	Headers []string
	// Rows holds the data rows; Rows[i] is spreadsheet line i+2.
	Rows [][]string
}

// ReadSheet loads the first sheet of the workbook at path. Row 1 is treated
// as headers, rows 2..n as data.
func ReadSheet(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: abrir archivo: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("importer: el archivo no contiene hojas")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("importer: leer hoja %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return &Sheet{Headers: []string{}, Rows: [][]string{}}, nil
	}
	return &Sheet{Headers: rows[0], Rows: rows[1:]}, nil
}
