package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

var ErrDownload = errors.New("error downloading dataset")

// Downloader fetches the published datasets one at a time. Requests are paced by
// Limiter if it is not nil.
type Downloader struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewDownloader returns a Downloader limited to 'perSecond' requests. Zero means
// unlimited.
func NewDownloader(client *http.Client, perSecond float64) *Downloader {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &Downloader{
		Client:  client,
		Limiter: rate.NewLimiter(limit, 1),
	}
}

// Aggregate downloads every link in order, concatenates the datasets and cleans the
// result. The first failed download aborts the aggregation.
func (d *Downloader) Aggregate(ctx context.Context, links []string, progress func(string)) (*Table, error) {
	tables := []*Table{}

	for _, link := range links {
		if progress != nil {
			progress(link)
		}

		t, err := d.Download(ctx, link)
		if err != nil {
			return nil, err
		}

		tables = append(tables, t)
	}

	unified, err := Concat(tables...)
	if err != nil {
		return nil, err
	}

	unified.Clean()

	return unified, nil
}

// Download retrieves a single semicolon separated, Latin-1 encoded dataset.
func (d *Downloader) Download(ctx context.Context, link string) (*Table, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w %v (%v)", ErrDownload, link, err)
		}
	}

	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("%w %v (%v)", ErrDownload, link, err)
	}

	response, err := client.Do(rq)
	if err != nil {
		return nil, fmt.Errorf("%w %v (%v)", ErrDownload, link, err)
	}

	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, response.Body)
		return nil, fmt.Errorf("%w %v (%v)", ErrDownload, link, response.Status)
	}

	t, err := Parse(charmap.ISO8859_1.NewDecoder().Reader(response.Body))
	if err != nil {
		return nil, fmt.Errorf("%w %v (%v)", ErrDownload, link, err)
	}

	return t, nil
}

// Parse reads a semicolon separated dataset with a header row. Every record must
// have the same number of fields as the header.
func Parse(f io.Reader) (*Table, error) {
	r := csv.NewReader(f)
	r.Comma = ';'
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty dataset")
	} else if err != nil {
		return nil, err
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	return &Table{
		Header:  header,
		Records: records,
	}, nil
}
