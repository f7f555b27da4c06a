package commands

import (
	"encoding/csv"
	"fmt"
	"io"

	"google.golang.org/api/sheets/v4"
)

// sheetToTSV writes the worksheet values as tab separated records. The Sheets API
// omits trailing empty cells so short rows are padded to the width of the header.
func sheetToTSV(f io.Writer, data *sheets.ValueRange) error {
	if len(data.Values) == 0 {
		return fmt.Errorf("empty sheet")
	}

	header := record(data.Values[0], 0)
	if len(header) == 0 {
		return fmt.Errorf("missing/invalid header row")
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(header); err != nil {
		return err
	}

	for i, row := range data.Values[1:] {
		if len(row) > len(header) {
			return fmt.Errorf("row %v has %v columns, expected %v", i+2, len(row), len(header))
		}

		if err := w.Write(record(row, len(header))); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

func record(row []any, width int) []string {
	r := make([]string, max(width, len(row)))
	for i, v := range row {
		if v != nil {
			r[i] = fmt.Sprintf("%v", v)
		}
	}

	return r
}
