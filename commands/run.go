package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/sri-datasets/sri-sheets/archive"
	"github.com/sri-datasets/sri-sheets/auth"
	"github.com/sri-datasets/sri-sheets/config"
	"github.com/sri-datasets/sri-sheets/dataset"
	"github.com/sri-datasets/sri-sheets/discover"
	"github.com/sri-datasets/sri-sheets/publish"
)

var RunCmd = Run{
	config:      DEFAULT_CONFIG,
	credentials: "",
	dryrun:      false,
	debug:       false,
}

// Run discovers, merges and publishes the SRI datasets.
type Run struct {
	config      string
	credentials string
	dryrun      bool
	debug       bool
}

func (cmd *Run) Name() string {
	return "run"
}

func (cmd *Run) Description() string {
	return "Merges the published SRI CSV datasets into a Google Sheets spreadsheet"
}

func (cmd *Run) Usage() string {
	return "[--config <file>] [--credentials <file>] [--dryrun]"
}

func (cmd *Run) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] run [options]\n", APP)
	fmt.Println()
	fmt.Println("  Downloads the CSV datasets listed in the configured section of the SRI datasets page, merges")
	fmt.Println("  them into a single table and replaces the contents of the first worksheet of the configured")
	fmt.Println("  Google Sheets spreadsheet with the merged table. The spreadsheet is created and shared if it")
	fmt.Println("  does not exist.")
	fmt.Println()
	fmt.Println("  The Google service account credentials are read from the GCP_CREDENTIALS environment variable")
	fmt.Println("  unless a credentials file is specified.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    GCP_CREDENTIALS="$(cat sri-etl.json)" sri-sheets run`)
	fmt.Println(`    sri-sheets --debug run --config sri-sheets.yaml --credentials sri-etl.json --dryrun`)
	fmt.Println()
}

func (cmd *Run) FlagSet() *flag.FlagSet {
	flagset := flag.NewFlagSet("run", flag.ExitOnError)

	flagset.StringVar(&cmd.config, "config", cmd.config, "Configuration file path")
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the service account 'credentials.json' file")
	flagset.BoolVar(&cmd.dryrun, "dryrun", cmd.dryrun, "Merges the datasets without archiving or publishing the result")

	return flagset
}

func (cmd *Run) Execute(args ...any) error {
	ctx, options := unpack(args)

	cmd.debug = options.Debug

	cfg, err := loadConfig(cmd.config)
	if err != nil {
		return err
	}

	run := uuid.NewString()
	started := time.Now()

	if cmd.debug {
		debugf("run:%v  page:%v  section:%q  spreadsheet:%q", run, cfg.Source.URL, cfg.Source.Section, cfg.Destination.Spreadsheet)
	}

	// ... authenticate
	scopes := []string{}
	if cfg.Archive.Bucket != "" && !cmd.dryrun {
		scopes = append(scopes, auth.STORAGE)
	}

	session, err := authorise(ctx, cfg, cmd.credentials, scopes...)
	if err != nil {
		return err
	}

	infof("Authorised as %v", session.Email)

	// ... build pipeline
	p, closer, err := cmd.pipeline(ctx, cfg, session, run, started)
	if err != nil {
		return err
	}

	defer closer()

	result, err := p.run(ctx)
	if err != nil {
		return err
	}

	report(os.Stdout, cfg.Source.Section, result)

	return nil
}

// report writes the outcome of a run to w.
func report(w io.Writer, section string, r *result) {
	switch {
	case r.links == 0:
		fmt.Fprintf(w, "No CSV datasets found in section %q - nothing to do\n", section)

	case r.location == nil:
		fmt.Fprintf(w, "Dry run: merged %v datasets into %v records (not published)\n", r.links, len(r.table.Records))

	default:
		infof("Published %v records", len(r.table.Records))
		fmt.Fprintf(w, "Published to %v\n", r.location.URL)
	}
}

func (cmd *Run) pipeline(ctx context.Context, cfg config.Config, session *auth.Session, run string, started time.Time) (*pipeline, func(), error) {
	downloader := dataset.NewDownloader(http.DefaultClient, cfg.Source.DownloadRate)
	closer := func() {}

	p := pipeline{
		discover: func(ctx context.Context) ([]string, error) {
			return discover.Links(ctx, http.DefaultClient, cfg.Source.URL, cfg.Source.Section, cfg.Source.Timeout)
		},

		aggregate: func(ctx context.Context, links []string) (*dataset.Table, error) {
			return downloader.Aggregate(ctx, links, func(link string) {
				infof("Downloading %v", path.Base(link))
			})
		},
	}

	if cmd.dryrun {
		return &p, closer, nil
	}

	publisher, err := publish.New(ctx, session.Client, cfg.Destination.BatchSize)
	if err != nil {
		return nil, nil, err
	}

	p.publish = func(ctx context.Context, table *dataset.Table) (*publish.Location, error) {
		return publisher.Publish(ctx, cfg.Destination.Spreadsheet, table, cfg.Destination.ShareWith)
	}

	if cfg.Archive.Bucket != "" {
		archiver, err := archive.New(ctx, session.Client, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			return nil, nil, err
		}

		closer = func() {
			if err := archiver.Close(); err != nil {
				warnf("%v", err)
			}
		}

		p.archive = func(ctx context.Context, table *dataset.Table) (string, error) {
			return archiver.Save(ctx, run, started, table)
		}
	}

	return &p, closer, nil
}

// pipeline chains the ETL stages. archive and publish are optional.
type pipeline struct {
	discover  func(context.Context) ([]string, error)
	aggregate func(context.Context, []string) (*dataset.Table, error)
	archive   func(context.Context, *dataset.Table) (string, error)
	publish   func(context.Context, *dataset.Table) (*publish.Location, error)
}

type result struct {
	links    int
	table    *dataset.Table
	location *publish.Location
}

func (p *pipeline) run(ctx context.Context) (*result, error) {
	infof("Extracting dataset links")

	links, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	if len(links) == 0 {
		warnf("No CSV datasets found")
		return &result{}, nil
	}

	infof("Found %v CSV datasets", len(links))
	infof("Merging datasets")

	table, err := p.aggregate(ctx, links)
	if err != nil {
		return nil, err
	}

	infof("Merged dataset has %v columns and %v records", len(table.Header), len(table.Records))

	if p.archive != nil {
		uri, err := p.archive(ctx, table)
		if err != nil {
			return nil, err
		}

		infof("Archived merged dataset to %v", uri)
	}

	r := result{
		links: len(links),
		table: table,
	}

	if p.publish != nil {
		infof("Publishing merged dataset")

		location, err := p.publish(ctx, table)
		if err != nil {
			return nil, err
		}

		if location.Created {
			infof("Created spreadsheet %v", location.SpreadsheetID)
		}

		infof("Published merged dataset to worksheet '%v'", location.Sheet)

		r.location = location
	}

	return &r, nil
}
