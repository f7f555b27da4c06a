package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/sri-datasets/sri-sheets/auth"
	"github.com/sri-datasets/sri-sheets/config"
)

const APP = "sri-sheets"

// Options holds the global command line options.
type Options struct {
	Debug bool
}

func unpack(args []any) (context.Context, *Options) {
	ctx := context.Background()
	options := &Options{}

	for _, arg := range args {
		switch v := arg.(type) {
		case context.Context:
			ctx = v
		case *Options:
			options = v
		}
	}

	return ctx, options
}

// loadConfig returns the built-in defaults if the default configuration file does
// not exist. An explicitly specified file must exist.
func loadConfig(path string) (config.Config, error) {
	if path == DEFAULT_CONFIG {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}

	return config.Load(path)
}

// authorise creates a session from the --credentials file if specified, falling back
// to the configured credentials file and then the credentials environment variable.
func authorise(ctx context.Context, cfg config.Config, credentials string, scopes ...string) (*auth.Session, error) {
	if file := strings.TrimSpace(credentials); file != "" {
		return auth.FromFile(ctx, file, scopes...)
	}

	if file := strings.TrimSpace(cfg.Credentials.File); file != "" {
		return auth.FromFile(ctx, file, scopes...)
	}

	return auth.FromEnv(ctx, cfg.Credentials.Env, scopes...)
}

func helpOptions(flagset *flag.FlagSet) {
	flagset.VisitAll(func(f *flag.Flag) {
		fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
	})

	fmt.Println()
	fmt.Println("  Options:")
	fmt.Println()
	fmt.Println("    --debug Displays internal information for diagnosing errors")
}

func debugf(format string, args ...any) {
	log.Printf("%-5s %s", "DEBUG", fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	log.Printf("%-5s %s", "INFO", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Printf("%-5s %s", "WARN", fmt.Sprintf(format, args...))
}
