package handler

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gatepost/gatepost/pkg/matcher"
)

// RouteHandler pairs one matcher with the page served when it matches.
type RouteHandler struct {
	Match matcher.Matcher
	Page  Page
}

// Table is the unit of atomic reload: an ordered handler list, the two
// fallback pages, and the bind address the table was written for. Handler
// order is load-bearing — the first matching handler wins.
type Table struct {
	Host string
	Port int

	Handlers []RouteHandler
	NotFound Page
	NoPath   Page
}

// Addr returns the host:port the table expects to be served on.
func (t *Table) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// Prepare runs the one-time setup of every matcher and page in declaration
// order, then the fallback pages, stopping at the first failure. The error
// names the handler it happened in, counting from 0. A table whose Prepare
// failed must be discarded, never installed.
func (t *Table) Prepare() error {
	for i := range t.Handlers {
		h := &t.Handlers[i]

		if err := h.Match.Prepare(); err != nil {
			return errors.Wrapf(err, "inside handler %d", i)
		}
		if err := h.Page.Prepare(); err != nil {
			return errors.Wrapf(err, "inside handler %d", i)
		}
	}

	if err := t.NotFound.Prepare(); err != nil {
		return errors.Wrap(err, "inside the not_found error page")
	}
	if err := t.NoPath.Prepare(); err != nil {
		return errors.Wrap(err, "inside the no_path error page")
	}

	return nil
}

// CloseIdleConnections drops the pooled upstream connections held by the
// table's proxy pages. Called when the table is replaced so a retired table
// does not keep keep-alive sockets open until the idle timeout; requests
// still running against the table keep working.
func (t *Table) CloseIdleConnections() {
	for i := range t.Handlers {
		if p, ok := t.Handlers[i].Page.(*ProxyPage); ok {
			p.closeIdleConnections()
		}
	}
	for _, page := range []Page{t.NotFound, t.NoPath} {
		if p, ok := page.(*ProxyPage); ok {
			p.closeIdleConnections()
		}
	}
}

// Resolve walks the handlers in declaration order and returns the page of
// the first one whose matcher accepts the path. When nothing matches it
// returns the not-found fallback and false. A miss is a normal outcome, not
// an error.
func (t *Table) Resolve(path string) (page Page, matched bool) {
	for i := range t.Handlers {
		if t.Handlers[i].Match.Matches(path) {
			return t.Handlers[i].Page, true
		}
	}

	return t.NotFound, false
}
