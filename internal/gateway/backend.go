package gateway

import (
	"fmt"
	"io"
	"time"
)

// Backend names accepted by Open.
const (
	BackendGraphQL = "graphql"
	BackendSQLite  = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Endpoint string        // GraphQL endpoint URL
	Token    string        // Bearer token for the GraphQL backend
	Timeout  time.Duration // Per-call timeout for the GraphQL backend
	DBPath   string        // SQLite database file
}

// Open builds a Gateway for opts. The returned closer releases backend
// resources and is never nil.
func Open(opts Options) (*Gateway, io.Closer, error) {
	switch opts.Backend {
	case BackendGraphQL, "":
		if opts.Endpoint == "" {
			return nil, nil, fmt.Errorf("graphql backend requires an endpoint")
		}
		client := NewClient(opts.Endpoint, opts.Token, opts.Timeout)
		return NewRemote(client), nopCloser{}, nil
	case BackendSQLite:
		path := opts.DBPath
		if path == "" {
			path = "pflow.db"
		}
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db.Gateway(), db, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
