package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fake is a minimal in-memory stand-in for the Drive and Sheets endpoints used by
// the publisher.
type fake struct {
	sync.Mutex
	spreadsheets map[string]*spreadsheet
	permissions  []*drive.Permission
	forbidden    bool
	failWrites   bool
	failShare    bool
	calls        []string
}

type spreadsheet struct {
	id      string
	name    string
	sheet   string
	rows    int64
	columns int64
	values  [][]string
}

func newFake(t *testing.T) (*fake, *Publisher) {
	g := fake{
		spreadsheets: map[string]*spreadsheet{},
	}

	srv := httptest.NewServer(http.HandlerFunc(g.handle))
	t.Cleanup(srv.Close)

	ctx := context.Background()

	gsheets, err := sheets.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("Error creating Sheets client (%v)", err)
	}

	gdrive, err := drive.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/drive/v3/"))
	if err != nil {
		t.Fatalf("Error creating Drive client (%v)", err)
	}

	return &g, &Publisher{Sheets: gsheets, Drive: gdrive, BatchSize: 2}
}

func (g *fake) add(id, name, sheet string, rows, columns int64, values [][]string) {
	g.Lock()
	defer g.Unlock()

	g.spreadsheets[id] = &spreadsheet{
		id:      id,
		name:    name,
		sheet:   sheet,
		rows:    rows,
		columns: columns,
		values:  values,
	}
}

func (g *fake) get(id string) *spreadsheet {
	g.Lock()
	defer g.Unlock()

	return g.spreadsheets[id]
}

func (g *fake) handle(w http.ResponseWriter, r *http.Request) {
	g.Lock()
	defer g.Unlock()

	path := r.URL.Path
	g.calls = append(g.calls, r.Method+" "+path)

	switch {
	case r.Method == http.MethodGet && path == "/drive/v3/files":
		g.list(w, r)

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/drive/v3/files/") && strings.HasSuffix(path, "/permissions"):
		if g.failShare {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"invalid sharing request"}}`))
			return
		}

		var p drive.Permission
		if !decode(w, r, &p) {
			return
		}
		g.permissions = append(g.permissions, &p)
		reply(w, drive.Permission{Id: fmt.Sprintf("p%d", len(g.permissions))})

	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		var rq sheets.Spreadsheet
		if !decode(w, r, &rq) {
			return
		}
		id := fmt.Sprintf("s%d", len(g.spreadsheets)+1)
		g.spreadsheets[id] = &spreadsheet{id: id, name: rq.Properties.Title, sheet: "Hoja 1", rows: 1000, columns: 26}
		reply(w, g.spreadsheets[id].marshal())

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/values:batchClear"):
		if s := g.lookup(w, path, "/values:batchClear"); s != nil {
			s.values = nil
			reply(w, sheets.BatchClearValuesResponse{SpreadsheetId: s.id})
		}

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/values:batchUpdate"):
		if s := g.lookup(w, path, "/values:batchUpdate"); s != nil {
			g.update(w, r, s)
		}

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		if s := g.lookup(w, path, ":batchUpdate"); s != nil {
			g.resize(w, r, s)
		}

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v4/spreadsheets/") && strings.Contains(path, "/values/"):
		if s := g.lookup(w, path[:strings.Index(path, "/values/")], ""); s != nil {
			rows := [][]interface{}{}
			for _, v := range s.values {
				rows = append(rows, values(v))
			}
			reply(w, sheets.ValueRange{Values: rows})
		}

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v4/spreadsheets/"):
		if s := g.lookup(w, path, ""); s != nil {
			reply(w, s.marshal())
		}

	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func (g *fake) list(w http.ResponseWriter, r *http.Request) {
	if g.forbidden {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`)
		return
	}

	name := ""
	if match := regexp.MustCompile(`name = '((?:[^'\\]|\\.)*)'`).FindStringSubmatch(r.URL.Query().Get("q")); len(match) > 1 {
		name = strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(match[1])
	}

	files := drive.FileList{Files: []*drive.File{}}
	for _, s := range g.spreadsheets {
		if s.name == name {
			files.Files = append(files.Files, &drive.File{Id: s.id, Name: s.name})
		}
	}

	reply(w, files)
}

func (g *fake) update(w http.ResponseWriter, r *http.Request, s *spreadsheet) {
	var rq sheets.BatchUpdateValuesRequest
	if !decode(w, r, &rq) {
		return
	}

	if g.failWrites {
		http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
		return
	}

	for _, data := range rq.Data {
		match := regexp.MustCompile(`^'(.*)'!A([0-9]+)$`).FindStringSubmatch(data.Range)
		if len(match) < 3 || strings.ReplaceAll(match[1], "''", "'") != s.sheet {
			http.Error(w, `{"error":{"code":400,"message":"invalid range"}}`, http.StatusBadRequest)
			return
		}

		start, _ := strconv.Atoi(match[2])
		if int64(start-1+len(data.Values)) > s.rows {
			http.Error(w, `{"error":{"code":400,"message":"exceeds grid limits"}}`, http.StatusBadRequest)
			return
		}

		for len(s.values) < start-1+len(data.Values) {
			s.values = append(s.values, []string{})
		}

		for i, row := range data.Values {
			record := []string{}
			for _, v := range row {
				record = append(record, fmt.Sprintf("%v", v))
			}
			s.values[start-1+i] = record
		}
	}

	reply(w, sheets.BatchUpdateValuesResponse{SpreadsheetId: s.id})
}

func (g *fake) resize(w http.ResponseWriter, r *http.Request, s *spreadsheet) {
	var rq sheets.BatchUpdateSpreadsheetRequest
	if !decode(w, r, &rq) {
		return
	}

	for _, q := range rq.Requests {
		if q.UpdateSheetProperties != nil && q.UpdateSheetProperties.Properties.GridProperties != nil {
			s.rows = q.UpdateSheetProperties.Properties.GridProperties.RowCount
			s.columns = q.UpdateSheetProperties.Properties.GridProperties.ColumnCount
		}
	}

	reply(w, sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: s.id})
}

func (g *fake) lookup(w http.ResponseWriter, path, suffix string) *spreadsheet {
	id := strings.TrimSuffix(strings.TrimPrefix(path, "/v4/spreadsheets/"), suffix)
	if s, ok := g.spreadsheets[id]; ok {
		return s
	}

	http.Error(w, `{"error":{"code":404,"message":"spreadsheet not found"}}`, http.StatusNotFound)
	return nil
}

func (s *spreadsheet) marshal() sheets.Spreadsheet {
	return sheets.Spreadsheet{
		SpreadsheetId:  s.id,
		SpreadsheetUrl: "https://docs.google.com/spreadsheets/d/" + s.id + "/edit",
		Properties:     &sheets.SpreadsheetProperties{Title: s.name},
		Sheets: []*sheets.Sheet{
			&sheets.Sheet{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					Title:   s.sheet,
					GridProperties: &sheets.GridProperties{
						RowCount:    s.rows,
						ColumnCount: s.columns,
					},
				},
			},
		},
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
