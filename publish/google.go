package publish

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

const SPREADSHEET = "application/vnd.google-apps.spreadsheet"

// Find returns the ID of the first spreadsheet visible to the service account with
// the given name, or "" if there is no such spreadsheet.
func Find(ctx context.Context, gdrive *drive.Service, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escape(name), SPREADSHEET)

	list, err := gdrive.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()

	if err != nil {
		return "", err
	}

	for _, f := range list.Files {
		if f.Name == name {
			return f.Id, nil
		}
	}

	return "", nil
}

func create(ctx context.Context, google *sheets.Service, name string) (*sheets.Spreadsheet, error) {
	rq := sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title: name,
		},
	}

	return google.Spreadsheets.Create(&rq).Context(ctx).Do()
}

func share(ctx context.Context, gdrive *drive.Service, id string, email string) error {
	permission := drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}

	if _, err := gdrive.Permissions.Create(id, &permission).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return err
	}

	return nil
}

func getSpreadsheet(ctx context.Context, google *sheets.Service, id string) (*sheets.Spreadsheet, error) {
	spreadsheet, err := google.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spreadsheet (%v)", err)
	}

	return spreadsheet, nil
}

// FirstSheet returns the first worksheet of the spreadsheet with the given ID.
func FirstSheet(ctx context.Context, google *sheets.Service, id string) (*sheets.Spreadsheet, *sheets.Sheet, error) {
	spreadsheet, err := getSpreadsheet(ctx, google, id)
	if err != nil {
		return nil, nil, err
	}

	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return nil, nil, fmt.Errorf("spreadsheet %v has no worksheets", id)
	}

	return spreadsheet, spreadsheet.Sheets[0], nil
}

func clear(ctx context.Context, google *sheets.Service, spreadsheet *sheets.Spreadsheet, ranges []string) error {
	rq := sheets.BatchClearValuesRequest{
		Ranges: ranges,
	}

	if _, err := google.Spreadsheets.Values.BatchClear(spreadsheet.SpreadsheetId, &rq).Context(ctx).Do(); err != nil {
		return err
	}

	return nil
}

// grow enlarges the worksheet grid to at least rows x columns. The grid is never
// shrunk.
func grow(ctx context.Context, google *sheets.Service, spreadsheet *sheets.Spreadsheet, sheet *sheets.Sheet, rows, columns int64) error {
	grid := sheet.Properties.GridProperties
	if grid == nil {
		grid = &sheets.GridProperties{}
	}

	if grid.RowCount >= rows && grid.ColumnCount >= columns {
		return nil
	}

	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheet.Properties.SheetId,
						GridProperties: &sheets.GridProperties{
							RowCount:    max(grid.RowCount, rows),
							ColumnCount: max(grid.ColumnCount, columns),
						},
					},
					Fields: "gridProperties(rowCount,columnCount)",
				},
			},
		},
	}

	if _, err := google.Spreadsheets.BatchUpdate(spreadsheet.SpreadsheetId, &rq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("error resizing worksheet (%w)", err)
	}

	return nil
}

// Quote returns the A1 notation for a worksheet title.
func Quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escape(name string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
}
