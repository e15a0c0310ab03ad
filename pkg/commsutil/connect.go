// Package commsutil holds COMMS (NATS) connection helpers, subject naming and
// payload encoding shared by the cache and event packages.
package commsutil

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

// Defaults applied by Connect.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxReconnects  = 60
)

// ConnectOpts configures Connect. Zero values use the defaults.
type ConnectOpts struct {
	URL           string
	Name          string
	Timeout       time.Duration
	MaxReconnects int
}

// Connect opens a COMMS connection and logs disconnects and reconnects.
func Connect(opts ConnectOpts) (*comms.Conn, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		url = comms.DefaultURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	maxReconnects := opts.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = DefaultMaxReconnects
	}

	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, url, opts.Name))
	nc, err := comms.Connect(url,
		comms.Name(opts.Name),
		comms.Timeout(timeout),
		comms.ReconnectWait(2*time.Second),
		comms.MaxReconnects(maxReconnects),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", logPrefix, err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
		comms.ClosedHandler(func(_ *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS connection closed", logPrefix))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}
