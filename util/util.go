package util

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/google/uuid"
)

var (
	once   sync.Once
	client *http.Client
)

type contextKey string

// runIDKey is the key against which the id of the current rebuild run is stored in the context.
const runIDKey = contextKey("run_id")

// NewRunID returns a fresh identifier for a rebuild run.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID returns a new context carrying the given run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext retrieves the run id stored in the context.
func RunIDFromContext(ctx context.Context) (string, error) {
	ctxRunID := ctx.Value(runIDKey)
	if ctxRunID == nil {
		return "", errors.NewNotFoundInContextError(string(runIDKey))
	}
	runID, ok := ctxRunID.(string)
	if !ok {
		return "", errors.NewInvalidCastError("ctxRunID", "string")
	}
	return runID, nil
}

// HTTPClient returns the shared http client used for elasticsearch calls.
func HTTPClient() *http.Client {
	once.Do(func() {
		var netTransport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		}
		var netClient = &http.Client{
			Timeout:   time.Minute * 2,
			Transport: netTransport,
		}
		client = netClient
	})
	return client
}
