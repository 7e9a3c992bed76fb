package handler

import (
	"net/http"
	"os"

	"github.com/pkg/errors"
)

// Page produces the response for a matched route.
//
// Prepare runs once when a routing table is built and resolves everything
// that can fail ahead of time: file reads, upstream address parsing. After a
// successful Prepare, Serve performs no file I/O and only the proxy page can
// return an error (a *ProxyError). Every other variant serves from memory
// and always returns nil.
type Page interface {
	Prepare() error
	Serve(w http.ResponseWriter, r *http.Request) error
}

// RedirectPage answers every request with a temporary redirect to a fixed
// target.
type RedirectPage struct {
	To string
}

func (p *RedirectPage) Prepare() error {
	if p.To == "" {
		return errors.New("a redirect page needs a target")
	}

	return nil
}

func (p *RedirectPage) Serve(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, p.To, http.StatusTemporaryRedirect)

	return nil
}

// EmbeddedPage serves fixed bytes carried in the configuration itself.
type EmbeddedPage struct {
	Data        []byte
	ContentType string
}

func (p *EmbeddedPage) Prepare() error {
	return nil
}

func (p *EmbeddedPage) Serve(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", p.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)

	return nil
}

// StaticFilePage serves the contents of a file on disk. The file is read
// fully into memory during Prepare; serving afterwards never touches the
// filesystem, so a file deleted after a successful reload keeps being served
// from the cached copy until the next reload.
type StaticFilePage struct {
	Path        string
	ContentType string

	cached []byte
}

func (p *StaticFilePage) Prepare() error {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return errors.Wrap(err, "inside a file page")
	}
	p.cached = data

	return nil
}

func (p *StaticFilePage) Serve(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", p.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.cached)

	return nil
}
