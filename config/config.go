package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultURL         = "https://www.sri.gob.ec/datasets"
	DefaultSection     = "Contribuyentes autorizados de oficio comprobantes electrónicos"
	DefaultSpreadsheet = "SRI_Contribuyentes_Autorizados"
	DefaultShareWith   = "tu-email-personal@gmail.com"
	DefaultCredentials = "GCP_CREDENTIALS"
	DefaultTimeout     = 45 * time.Second
	DefaultBatchSize   = 10000
	DefaultPrefix      = "sri"
)

// Config is the parameter bundle for a single ETL run. The zero values of the
// optional fields (download rate, archive bucket) disable the corresponding feature.
type Config struct {
	Source      Source      `yaml:"source"`
	Destination Destination `yaml:"destination"`
	Credentials Credentials `yaml:"credentials"`
	Archive     Archive     `yaml:"archive"`
}

type Source struct {
	URL          string        `yaml:"url"`
	Section      string        `yaml:"section"`
	Timeout      time.Duration `yaml:"timeout"`
	DownloadRate float64       `yaml:"download-rate"`
}

type Destination struct {
	Spreadsheet string `yaml:"spreadsheet"`
	ShareWith   string `yaml:"share-with"`
	BatchSize   int    `yaml:"batch-size"`
}

type Credentials struct {
	Env  string `yaml:"env"`
	File string `yaml:"file"`
}

type Archive struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

func Default() Config {
	return Config{
		Source: Source{
			URL:     DefaultURL,
			Section: DefaultSection,
			Timeout: DefaultTimeout,
		},
		Destination: Destination{
			Spreadsheet: DefaultSpreadsheet,
			ShareWith:   DefaultShareWith,
			BatchSize:   DefaultBatchSize,
		},
		Credentials: Credentials{
			Env: DefaultCredentials,
		},
		Archive: Archive{
			Prefix: DefaultPrefix,
		},
	}
}

// Load returns the default configuration overlaid with the contents of the YAML
// file. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read configuration file %v (%w)", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration file %v (%w)", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration file %v (%w)", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("missing source URL")
	}

	if strings.TrimSpace(c.Source.Section) == "" {
		return fmt.Errorf("missing source section label")
	}

	if c.Source.Timeout <= 0 {
		return fmt.Errorf("invalid source timeout (%v)", c.Source.Timeout)
	}

	if c.Source.DownloadRate < 0 {
		return fmt.Errorf("invalid download rate (%v)", c.Source.DownloadRate)
	}

	if strings.TrimSpace(c.Destination.Spreadsheet) == "" {
		return fmt.Errorf("missing destination spreadsheet name")
	}

	if strings.TrimSpace(c.Destination.ShareWith) == "" {
		return fmt.Errorf("missing destination share-with address")
	}

	if c.Destination.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size (%v)", c.Destination.BatchSize)
	}

	if strings.TrimSpace(c.Credentials.Env) == "" && strings.TrimSpace(c.Credentials.File) == "" {
		return fmt.Errorf("missing credentials environment variable")
	}

	return nil
}
