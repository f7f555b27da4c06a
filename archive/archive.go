package archive

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sri-datasets/sri-sheets/dataset"
)

var ErrArchive = errors.New("error archiving dataset")

// Archiver stores a copy of each unified dataset in a Cloud Storage bucket.
type Archiver struct {
	client *storage.Client
	Bucket *storage.BucketHandle
	Name   string
	Prefix string
}

func New(ctx context.Context, client *http.Client, bucket, prefix string, opts ...option.ClientOption) (*Archiver, error) {
	gcs, err := storage.NewClient(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create new Cloud Storage client (%v)", ErrArchive, err)
	}

	return &Archiver{
		client: gcs,
		Bucket: gcs.Bucket(bucket),
		Name:   bucket,
		Prefix: prefix,
	}, nil
}

func (a *Archiver) Close() error {
	if a.client != nil {
		return a.client.Close()
	}

	return nil
}

// Save writes the table to <prefix>/<yyyy-mm-dd>/<run>.csv. The object is only
// written if it does not already exist. Returns the gs:// URI of the object.
func (a *Archiver) Save(ctx context.Context, run string, timestamp time.Time, table *dataset.Table) (string, error) {
	object := Object(a.Prefix, run, timestamp)
	uri := fmt.Sprintf("gs://%v/%v", a.Name, object)

	w := a.Bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"

	if err := Write(w, table); err != nil {
		w.Close()
		return "", fmt.Errorf("%w: %v (%v)", ErrArchive, uri, err)
	}

	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return uri, nil
		}

		return "", fmt.Errorf("%w: %v (%v)", ErrArchive, uri, err)
	}

	return uri, nil
}

// Object returns the archive object name for a run.
func Object(prefix string, run string, timestamp time.Time) string {
	return path.Join(strings.Trim(prefix, "/"), timestamp.UTC().Format("2006-01-02"), run+".csv")
}

// Write encodes the table as UTF-8, semicolon separated CSV with a header row.
func Write(f io.Writer, table *dataset.Table) error {
	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(table.Header); err != nil {
		return err
	}

	if err := w.WriteAll(table.Records); err != nil {
		return err
	}

	return w.Error()
}
