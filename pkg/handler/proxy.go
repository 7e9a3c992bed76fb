package handler

import (
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Hop-by-hop headers, stripped from the outbound leg.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te", // canonicalized version of "TE"
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func delHopHeaders(header http.Header) {
	for _, h := range hopHeaders {
		header.Del(h)
	}
}

func appendHostToXForwardHeader(header http.Header, host string) {
	// If we aren't the first proxy retain prior
	// X-Forwarded-For information as a comma+space
	// separated list and fold multiple headers into one.
	if prior, ok := header["X-Forwarded-For"]; ok {
		host = strings.Join(prior, ", ") + ", " + host
	}
	header.Set("X-Forwarded-For", host)
}

// ProxyPage forwards the original request to a single upstream, replacing
// only the URL's scheme and authority. Method, path, query string, and
// headers pass through; the upstream's status, headers, and body come back
// verbatim. A forwarding failure is returned as a *ProxyError and is never
// retried here.
type ProxyPage struct {
	Scheme   string
	Upstream string

	client *http.Client
}

func (p *ProxyPage) Prepare() error {
	if p.Scheme != "http" && p.Scheme != "https" {
		return errors.Errorf("unsupported proxy scheme %q, only http and https work", p.Scheme)
	}
	if p.Upstream == "" {
		return errors.New("a proxy page needs an upstream host")
	}

	// One pooled client per page, shared by every request for the lifetime
	// of the routing table that owns the page. Redirects are relayed to the
	// original client, never followed here.
	p.client = &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	return nil
}

// closeIdleConnections releases the pooled keep-alive connections. In-flight
// requests are unaffected and the client stays usable afterwards.
func (p *ProxyPage) closeIdleConnections() {
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
}

func (p *ProxyPage) Serve(w http.ResponseWriter, r *http.Request) error {
	target := *r.URL
	target.Scheme = p.Scheme
	target.Host = p.Upstream

	outreq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return &ProxyError{Upstream: p.Upstream, Err: err}
	}
	// The body is an opaque reader to the client, so the declared length
	// must be carried over explicitly or the transport re-sends the body
	// chunked and drops the Content-Length header.
	outreq.ContentLength = r.ContentLength

	copyHeader(outreq.Header, r.Header)
	delHopHeaders(outreq.Header)

	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		appendHostToXForwardHeader(outreq.Header, clientIP)
	}

	resp, err := p.client.Do(outreq)
	if err != nil {
		return &ProxyError{Upstream: p.Upstream, Err: err}
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)

	return nil
}
