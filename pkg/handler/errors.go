package handler

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrRestartRequired is returned by a reload whose configuration is valid but
// changes the bind address. The listening socket is owned by the bootstrap
// code, so such a change can only be applied by restarting the process.
var ErrRestartRequired = errors.New("these configuration changes would require a restart")

// ProxyError reports a failed attempt to forward a request to an upstream.
// It is surfaced by the proxy page's Serve and mapped to a gateway error by
// the dispatcher; it is never retried.
type ProxyError struct {
	Upstream string
	Err      error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxying to %s: %v", e.Upstream, e.Err)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}
