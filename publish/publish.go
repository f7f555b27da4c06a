package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sri-datasets/sri-sheets/dataset"
)

var ErrPublish = errors.New("error publishing dataset")
var ErrNotFound = errors.New("spreadsheet not found")

// Location identifies the published spreadsheet.
type Location struct {
	SpreadsheetID string
	Sheet         string
	URL           string
	Created       bool
}

// Publisher replaces the contents of the first worksheet of a named spreadsheet with
// a dataset table.
type Publisher struct {
	Sheets    *sheets.Service
	Drive     *drive.Service
	BatchSize int
}

// New returns a Publisher for an authorised HTTP client.
func New(ctx context.Context, client *http.Client, batchSize int) (*Publisher, error) {
	google, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create new Sheets client (%v)", err)
	}

	gdrive, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create new Drive client (%v)", err)
	}

	return &Publisher{
		Sheets:    google,
		Drive:     gdrive,
		BatchSize: batchSize,
	}, nil
}

// Publish opens (or creates and shares) the named spreadsheet, clears the first
// worksheet and writes the table header and records starting at A1.
//
// The clear and write are separate API calls: a failed write leaves the worksheet
// cleared.
func (p *Publisher) Publish(ctx context.Context, name string, table *dataset.Table, shareWith string) (*Location, error) {
	id, err := Find(ctx, p.Drive, name)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open spreadsheet '%s' (%v)", ErrPublish, name, err)
	}

	created := false
	if id == "" {
		spreadsheet, err := create(ctx, p.Sheets, name)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to create spreadsheet '%s' (%v)", ErrPublish, name, err)
		}

		if err := share(ctx, p.Drive, spreadsheet.SpreadsheetId, shareWith); err != nil {
			return nil, fmt.Errorf("%w: unable to share spreadsheet '%s' with %v (%v)", ErrPublish, name, shareWith, err)
		}

		id = spreadsheet.SpreadsheetId
		created = true
	}

	spreadsheet, sheet, err := FirstSheet(ctx, p.Sheets, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	title := sheet.Properties.Title

	if err := clear(ctx, p.Sheets, spreadsheet, []string{Quote(title)}); err != nil {
		return nil, fmt.Errorf("%w: error clearing worksheet '%s' (%v)", ErrPublish, title, err)
	}

	if err := p.write(ctx, spreadsheet, sheet, table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	return &Location{
		SpreadsheetID: id,
		Sheet:         title,
		URL:           url(spreadsheet),
		Created:       created,
	}, nil
}

func (p *Publisher) write(ctx context.Context, spreadsheet *sheets.Spreadsheet, sheet *sheets.Sheet, table *dataset.Table) error {
	if len(table.Header) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(table.Records)+1)
	rows = append(rows, values(table.Header))
	for _, record := range table.Records {
		rows = append(rows, values(record))
	}

	if err := grow(ctx, p.Sheets, spreadsheet, sheet, int64(len(rows)), int64(len(table.Header))); err != nil {
		return err
	}

	batch := p.BatchSize
	if batch <= 0 {
		batch = len(rows)
	}

	title := sheet.Properties.Title
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))

		rq := sheets.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data: []*sheets.ValueRange{
				&sheets.ValueRange{
					Range:  fmt.Sprintf("%v!A%v", Quote(title), start+1),
					Values: rows[start:end],
				},
			},
		}

		if _, err := p.Sheets.Spreadsheets.Values.BatchUpdate(spreadsheet.SpreadsheetId, &rq).Context(ctx).Do(); err != nil {
			return fmt.Errorf("error writing rows %v-%v to worksheet '%s' (%v)", start+1, end, title, err)
		}
	}

	return nil
}

// Fetch retrieves the contents of the first worksheet of the named spreadsheet.
func (p *Publisher) Fetch(ctx context.Context, name string) (*Location, *sheets.ValueRange, error) {
	id, err := Find(ctx, p.Drive, name)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open spreadsheet '%s' (%v)", name, err)
	} else if id == "" {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}

	spreadsheet, sheet, err := FirstSheet(ctx, p.Sheets, id)
	if err != nil {
		return nil, nil, err
	}

	title := sheet.Properties.Title

	response, err := p.Sheets.Spreadsheets.Values.Get(id, Quote(title)).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to retrieve data from worksheet '%s' (%v)", title, err)
	}

	location := Location{
		SpreadsheetID: id,
		Sheet:         title,
		URL:           url(spreadsheet),
	}

	return &location, response, nil
}

func values(record []string) []interface{} {
	row := make([]interface{}, len(record))
	for i, v := range record {
		row[i] = v
	}

	return row
}

func url(spreadsheet *sheets.Spreadsheet) string {
	if spreadsheet.SpreadsheetUrl != "" {
		return spreadsheet.SpreadsheetUrl
	}

	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%v", spreadsheet.SpreadsheetId)
}
