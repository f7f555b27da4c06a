package discover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

const label = "Contribuyentes autorizados de oficio comprobantes electrónicos"

const page = `<!DOCTYPE html>
<html>
<body>
  <h3><strong>Catastro RUC</strong></h3>
  <div>
    <a href="https://www.sri.gob.ec/o/sri-portlet/ruc/ruc.csv">RUC</a>
  </div>

  <h3 class="title">
    <strong>  Contribuyentes autorizados de oficio comprobantes electrónicos  </strong>
  </h3>
  <p>Actualizado mensualmente</p>
  <div class="files">
    <ul>
      <li><a href="/datasets/autorizados/a.csv">Enero</a></li>
      <li><a href="/datasets/autorizados/readme.pdf">Ficha</a></li>
      <li><a href=" https://cdn.sri.gob.ec/autorizados/b.csv ">Febrero</a></li>
      <li><a href="/datasets/autorizados/c.CSV">Marzo</a></li>
      <li><a>sin enlace</a></li>
    </ul>
  </div>
</body>
</html>`

func parse(t *testing.T, s string) *html.Node {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Error parsing HTML (%v)", err)
	}

	return doc
}

func TestLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))

	defer srv.Close()

	expected := []string{
		srv.URL + "/datasets/autorizados/a.csv",
		"https://cdn.sri.gob.ec/autorizados/b.csv",
	}

	links, err := Links(context.Background(), srv.Client(), srv.URL+"/datasets", label, 5*time.Second)
	if err != nil {
		t.Fatalf("Unexpected error returned from Links (%v)", err)
	}

	if !reflect.DeepEqual(links, expected) {
		t.Errorf("Incorrect links\n   expected: %v\n   got:      %v\n", expected, links)
	}
}

func TestLinksWithNoCSVFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<h3><strong>%s</strong></h3><div><a href="ficha.pdf">Ficha</a></div>`, label)
	}))

	defer srv.Close()

	links, err := Links(context.Background(), srv.Client(), srv.URL, label, 5*time.Second)
	if err != nil {
		t.Fatalf("Unexpected error returned from Links (%v)", err)
	}

	if links == nil || len(links) != 0 {
		t.Errorf("Expected empty list of links, got %v", links)
	}
}

func TestLinksWithHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))

	defer srv.Close()

	if _, err := Links(context.Background(), srv.Client(), srv.URL, label, 5*time.Second); !errors.Is(err, ErrFetch) {
		t.Errorf("Expected %v, got %v", ErrFetch, err)
	}
}

func TestLinksWithTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))

	defer srv.Close()
	defer close(done)

	if _, err := Links(context.Background(), srv.Client(), srv.URL, label, 50*time.Millisecond); !errors.Is(err, ErrFetch) {
		t.Errorf("Expected %v, got %v", ErrFetch, err)
	}
}

func TestLinksWithMissingSection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h3><strong>Catastro RUC</strong></h3><div><a href="ruc.csv">RUC</a></div>`)
	}))

	defer srv.Close()

	if _, err := Links(context.Background(), srv.Client(), srv.URL, label, 5*time.Second); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("Expected %v, got %v", ErrSectionNotFound, err)
	}
}

func TestSectionWithoutHeading(t *testing.T) {
	doc := parse(t, fmt.Sprintf(`<p><strong>%s</strong></p><div><a href="a.csv">a</a></div>`, label))

	if _, err := Section(doc, label); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("Expected %v, got %v", ErrSectionNotFound, err)
	}
}

func TestSectionWithoutContainer(t *testing.T) {
	doc := parse(t, fmt.Sprintf(`<div><h3><strong>%s</strong></h3><p><a href="a.csv">a</a></p></div>`, label))

	if _, err := Section(doc, label); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("Expected %v, got %v", ErrSectionNotFound, err)
	}
}

func TestSectionUsesFirstMatch(t *testing.T) {
	doc := parse(t, fmt.Sprintf(`
      <h3><strong>%[1]s</strong></h3><div id="first"></div>
      <h3><strong>%[1]s</strong></h3><div id="second"></div>`, label))

	container, err := Section(doc, label)
	if err != nil {
		t.Fatalf("Unexpected error returned from Section (%v)", err)
	}

	if id, _ := attr(container, "id"); id != "first" {
		t.Errorf("Incorrect section container - expected:%v, got:%v", "first", id)
	}
}
