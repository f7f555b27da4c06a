package commands

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sri-datasets/sri-sheets/dataset"
	"github.com/sri-datasets/sri-sheets/publish"
)

var PutCmd = Put{
	config:      DEFAULT_CONFIG,
	credentials: "",
	file:        "",
	debug:       false,
}

// Put republishes an archived dataset file.
type Put struct {
	config      string
	credentials string
	file        string
	debug       bool
}

func (cmd *Put) Name() string {
	return "put"
}

func (cmd *Put) Description() string {
	return "Republishes an archived dataset CSV file to Google Sheets"
}

func (cmd *Put) Usage() string {
	return "[--config <file>] [--credentials <file>] --file <file>"
}

func (cmd *Put) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] put [options] --file <file>\n", APP)
	fmt.Println()
	fmt.Println("  Replaces the contents of the first worksheet of the configured spreadsheet with an archived")
	fmt.Println("  (UTF-8, semicolon separated) dataset file")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    sri-sheets put --credentials "sri-etl.json" --file "2026-10-18/5b0c7f5e.csv"`)
	fmt.Println()
}

func (cmd *Put) FlagSet() *flag.FlagSet {
	flagset := flag.NewFlagSet("put", flag.ExitOnError)

	flagset.StringVar(&cmd.config, "config", cmd.config, "Configuration file path")
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the service account 'credentials.json' file")
	flagset.StringVar(&cmd.file, "file", cmd.file, "Archived dataset file")

	return flagset
}

func (cmd *Put) Execute(args ...any) error {
	ctx, options := unpack(args)

	cmd.debug = options.Debug

	if strings.TrimSpace(cmd.file) == "" {
		return fmt.Errorf("--file is a required option")
	}

	cfg, err := loadConfig(cmd.config)
	if err != nil {
		return err
	}

	table, err := load(cmd.file)
	if err != nil {
		return err
	}

	if cmd.debug {
		debugf("Dataset - file:%v  columns:%v  records:%v", cmd.file, len(table.Header), len(table.Records))
	}

	session, err := authorise(ctx, cfg, cmd.credentials)
	if err != nil {
		return err
	}

	publisher, err := publish.New(ctx, session.Client, cfg.Destination.BatchSize)
	if err != nil {
		return err
	}

	location, err := publisher.Publish(ctx, cfg.Destination.Spreadsheet, table, cfg.Destination.ShareWith)
	if err != nil {
		return err
	}

	infof("Uploaded dataset file %v to worksheet '%v'", cmd.file, location.Sheet)
	fmt.Printf("Published to %v\n", location.URL)

	return nil
}

// load reads an archived dataset. The header is normalised and the records
// deduplicated in case the file was edited by hand.
func load(file string) (*dataset.Table, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	table, err := dataset.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset file %v (%w)", file, err)
	}

	table.Clean()

	return table, nil
}
