package util

import (
	"net/http"
	"strings"
)

// RunIDHeader carries the id of the rebuild run on every elasticsearch request
// so the cluster's slow/audit logs can be correlated with a run.
const RunIDHeader = "X-Rebuild-Run"

// CustomESTransport will be passed to olivere/elasticsearch
type CustomESTransport struct {
	originalTransport http.RoundTripper
	headerName        string
	headerValue       string
}

// NewCustomESTransport wraps original, adding the optional `Name: value`
// header to every request.
func NewCustomESTransport(original http.RoundTripper, header string) *CustomESTransport {
	if original == nil {
		original = http.DefaultTransport
	}
	ct := &CustomESTransport{originalTransport: original}
	if header != "" {
		parts := strings.SplitN(header, ":", 2)
		ct.headerName = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			ct.headerValue = strings.TrimSpace(parts[1])
		}
	}
	return ct
}

// RoundTrip adds the configured headers to the request.
func (ct *CustomESTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if ct.headerName != "" {
		req.Header.Set(ct.headerName, ct.headerValue)
	}
	if runID, err := RunIDFromContext(req.Context()); err == nil {
		req.Header.Set(RunIDHeader, runID)
	}
	return ct.originalTransport.RoundTrip(req)
}
