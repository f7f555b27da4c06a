package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sri-datasets/sri-sheets/publish"
)

var GetCmd = Get{
	config:      DEFAULT_CONFIG,
	credentials: "",
	spreadsheet: "",
	file:        time.Now().Format("2006-01-02T150405.tsv"),
	debug:       false,
}

// Get retrieves the published dataset from the first worksheet of the spreadsheet.
type Get struct {
	config      string
	credentials string
	spreadsheet string
	file        string
	debug       bool
}

func (cmd *Get) Name() string {
	return "get"
}

func (cmd *Get) Description() string {
	return "Retrieves the published dataset from Google Sheets and stores it to a local TSV file"
}

func (cmd *Get) Usage() string {
	return "[--config <file>] [--credentials <file>] [--spreadsheet <name>] [--file <file>]"
}

func (cmd *Get) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] get [options]\n", APP)
	fmt.Println()
	fmt.Println("  Downloads the first worksheet of the published spreadsheet to a TSV file")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    sri-sheets --debug get --credentials "sri-etl.json" --file "contribuyentes.tsv"`)
	fmt.Println()
}

func (cmd *Get) FlagSet() *flag.FlagSet {
	flagset := flag.NewFlagSet("get", flag.ExitOnError)

	flagset.StringVar(&cmd.config, "config", cmd.config, "Configuration file path")
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the service account 'credentials.json' file")
	flagset.StringVar(&cmd.spreadsheet, "spreadsheet", cmd.spreadsheet, "Spreadsheet name. Defaults to the configured spreadsheet")
	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV file name. Defaults to '<yyyy-mm-ddTHHmmss>.tsv'")

	return flagset
}

func (cmd *Get) Execute(args ...any) error {
	ctx, options := unpack(args)

	cmd.debug = options.Debug

	cfg, err := loadConfig(cmd.config)
	if err != nil {
		return err
	}

	name := cfg.Destination.Spreadsheet
	if s := strings.TrimSpace(cmd.spreadsheet); s != "" {
		name = s
	}

	if strings.TrimSpace(cmd.file) == "" {
		return fmt.Errorf("--file is a required option")
	}

	if cmd.debug {
		debugf("Spreadsheet - name:%q  file:%v", name, cmd.file)
	}

	// ... authorise
	session, err := authorise(ctx, cfg, cmd.credentials)
	if err != nil {
		return err
	}

	publisher, err := publish.New(ctx, session.Client, cfg.Destination.BatchSize)
	if err != nil {
		return err
	}

	location, response, err := publisher.Fetch(ctx, name)
	if err != nil {
		return err
	}

	if cmd.debug {
		debugf("Spreadsheet - ID:%v  worksheet:%q  rows:%v", location.SpreadsheetID, location.Sheet, len(response.Values))
	}

	tmp, err := os.CreateTemp(os.TempDir(), "sri-sheets-*.tsv")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := sheetToTSV(tmp, response); err != nil {
		return fmt.Errorf("error creating TSV file (%v)", err)
	}

	tmp.Close()

	dir := filepath.Dir(cmd.file)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), cmd.file); err != nil {
		return err
	}

	infof("Retrieved worksheet '%v' from %v to file %s", location.Sheet, location.URL, cmd.file)

	return nil
}
