package util

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	es7 "github.com/olivere/elastic/v7"
)

// CompareErrs reports whether actual carries the expected error message,
// an empty expectation matching a nil error.
func CompareErrs(expectedErr string, actual error) bool {
	if actual == nil {
		return expectedErr == ""
	}

	return expectedErr == actual.Error()
}

// ServerSetup is one canned elasticsearch response of a test server.
type ServerSetup struct {
	Method, Path, Body, Response string
	// Param, as "key=value", must be present in the query string when set.
	Param      string
	HTTPStatus int
}

// TestServer is a stub elasticsearch cluster answering with canned responses.
type TestServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
	headers  []http.Header
}

// Requests returns "METHOD:path" for every request served so far.
func (ts *TestServer) Requests() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.requests...)
}

// Headers returns the headers of every request served so far.
func (ts *TestServer) Headers() []http.Header {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]http.Header(nil), ts.headers...)
}

// BuildTestServer starts a stub cluster. A request must match the method,
// escaped path and body of one of the setups, otherwise the test fails.
// An empty setup Body matches any request body.
func BuildTestServer(t *testing.T, setups []*ServerSetup) *TestServer {
	ts := &TestServer{}
	handlerFunc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBytes, _ := ioutil.ReadAll(r.Body)
		requestBody := string(requestBytes)

		ts.mu.Lock()
		ts.requests = append(ts.requests, r.Method+":"+r.URL.EscapedPath())
		ts.headers = append(ts.headers, r.Header.Clone())
		ts.mu.Unlock()

		for _, setup := range setups {
			if r.Method != setup.Method || r.URL.EscapedPath() != setup.Path {
				continue
			}
			if setup.Body != "" && requestBody != setup.Body {
				continue
			}
			if setup.Param != "" && !hasParam(r, setup.Param) {
				continue
			}
			w.Header().Set("Content-Type", "application/json")
			if setup.HTTPStatus == 0 {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(setup.HTTPStatus)
			}
			if _, err := w.Write([]byte(setup.Response)); err != nil {
				t.Errorf("Unable to write test server response: %v", err)
			}
			return
		}

		t.Errorf("No requests matched setup. Got method %s, Path %s, body %s\n", r.Method, r.URL.EscapedPath(), requestBody)
		w.WriteHeader(http.StatusNotImplemented)
	})

	ts.Server = httptest.NewServer(handlerFunc)
	return ts
}

func hasParam(r *http.Request, param string) bool {
	kv := strings.SplitN(param, "=", 2)
	values, ok := r.URL.Query()[kv[0]]
	if !ok {
		return false
	}
	if len(kv) == 1 {
		return true
	}
	for _, v := range values {
		if v == kv[1] {
			return true
		}
	}
	return false
}

// NewTestClient returns an es7 client talking to the stub cluster at url.
func NewTestClient(t *testing.T, url, header string) *es7.Client {
	c, err := NewESClient(ClientOptions{URL: url, Header: header})
	if err != nil {
		t.Fatalf("unable to create test client: %v", err)
	}
	return c
}
