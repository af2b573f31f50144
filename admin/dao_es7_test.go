package admin

import (
	"context"
	"testing"

	"github.com/appbaseio/rebuild-indices/util"
)

var updateSettingsTests = []struct {
	name  string
	setup *util.ServerSetup
	ack   bool
	err   string
}{
	{
		"acknowledged",
		&util.ServerSetup{
			Method:   "PUT",
			Path:     "/entitya/_settings",
			Body:     `{"index.refresh_interval":"60s"}`,
			Response: `{"acknowledged":true}`,
		},
		true,
		"",
	},
	{
		"not acknowledged",
		&util.ServerSetup{
			Method:   "PUT",
			Path:     "/entitya/_settings",
			Body:     `{"index.refresh_interval":"60s"}`,
			Response: `{"acknowledged":false}`,
		},
		false,
		"",
	},
	{
		"missing index",
		&util.ServerSetup{
			Method:     "PUT",
			Path:       "/entitya/_settings",
			Response:   `{"error":{"type":"index_not_found_exception","reason":"no such index [entitya]"},"status":404}`,
			HTTPStatus: 404,
		},
		false,
		"elastic: Error 404 (Not Found): no such index [entitya] [type=index_not_found_exception]",
	},
}

func TestUpdateSettings(t *testing.T) {
	for _, tt := range updateSettingsTests {
		t.Run(tt.name, func(t *testing.T) {
			ts := util.BuildTestServer(t, []*util.ServerSetup{tt.setup})
			defer ts.Close()
			es := NewElasticsearch(util.NewTestClient(t, ts.URL, ""), ts.URL, "1s")

			ack, err := es.UpdateSettings(context.Background(), "entitya", map[string]interface{}{RefreshIntervalSetting: "60s"})
			if !util.CompareErrs(tt.err, err) {
				t.Fatalf("Update settings error mismatch, expected: %v got: %v\n", tt.err, err)
			}
			if ack != tt.ack {
				t.Fatalf("Acknowledged mismatch, expected: %v got: %v\n", tt.ack, ack)
			}
		})
	}
}

var cloneTests = []struct {
	name  string
	setup *util.ServerSetup
	ack   bool
	err   string
}{
	{
		"acknowledged",
		&util.ServerSetup{
			Method:   "PUT",
			Path:     "/entitya/_clone/entitya_clone_1",
			Response: `{"acknowledged":true,"shards_acknowledged":true,"index":"entitya_clone_1"}`,
		},
		true,
		"",
	},
	{
		"not acknowledged",
		&util.ServerSetup{
			Method:   "PUT",
			Path:     "/entitya/_clone/entitya_clone_1",
			Response: `{"acknowledged":false,"shards_acknowledged":false,"index":"entitya_clone_1"}`,
		},
		false,
		"",
	},
	{
		"malformed response",
		&util.ServerSetup{
			Method:   "PUT",
			Path:     "/entitya/_clone/entitya_clone_1",
			Response: `{"index":"entitya_clone_1"}`,
		},
		false,
		"clone of index entitya: acknowledged flag missing from response: Key path not found",
	},
}

func TestClone(t *testing.T) {
	for _, tt := range cloneTests {
		t.Run(tt.name, func(t *testing.T) {
			ts := util.BuildTestServer(t, []*util.ServerSetup{tt.setup})
			defer ts.Close()
			es := NewElasticsearch(util.NewTestClient(t, ts.URL, ""), ts.URL, "1s")

			ack, err := es.Clone(context.Background(), "entitya", "entitya_clone_1")
			if !util.CompareErrs(tt.err, err) {
				t.Fatalf("Clone error mismatch, expected: %v got: %v\n", tt.err, err)
			}
			if ack != tt.ack {
				t.Fatalf("Acknowledged mismatch, expected: %v got: %v\n", tt.ack, ack)
			}
		})
	}
}

var refreshIntervalTests = []struct {
	name     string
	response string
	expected string
	err      string
}{
	{
		"explicit setting",
		`{"entitya":{"settings":{"index":{"refresh_interval":"60s"}},"defaults":{"index":{"refresh_interval":"1s"}}}}`,
		"60s",
		"",
	},
	{
		"cluster default",
		`{"entitya":{"settings":{},"defaults":{"index":{"refresh_interval":"1s"}}}}`,
		"1s",
		"",
	},
	{
		"absent",
		`{"entitya":{"settings":{}}}`,
		"",
		"refresh interval of index entitya not found in response: Key path not found",
	},
}

func TestCurrentRefreshInterval(t *testing.T) {
	for _, tt := range refreshIntervalTests {
		t.Run(tt.name, func(t *testing.T) {
			ts := util.BuildTestServer(t, []*util.ServerSetup{{
				Method:   "GET",
				Path:     "/entitya/_settings/index.refresh_interval",
				Response: tt.response,
			}})
			defer ts.Close()
			es := NewElasticsearch(util.NewTestClient(t, ts.URL, ""), ts.URL, "1s")

			actual, err := es.CurrentRefreshInterval(context.Background(), "entitya")
			if !util.CompareErrs(tt.err, err) {
				t.Fatalf("Refresh interval error mismatch, expected: %v got: %v\n", tt.err, err)
			}
			if actual != tt.expected {
				t.Fatalf("Refresh interval mismatch, expected: %s got: %s\n", tt.expected, actual)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	ts := util.BuildTestServer(t, []*util.ServerSetup{{
		Method:   "GET",
		Path:     "/",
		Response: `{"name":"node-1","cluster_name":"test","version":{"number":"7.10.2"},"tagline":"You Know, for Search"}`,
	}})
	defer ts.Close()
	es := NewElasticsearch(util.NewTestClient(t, ts.URL, ""), ts.URL, "1s")

	version, err := es.Version(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if version != "7.10.2" {
		t.Fatalf("Version mismatch, expected: 7.10.2 got: %s", version)
	}
}

func TestDeleteIndex(t *testing.T) {
	ts := util.BuildTestServer(t, []*util.ServerSetup{{
		Method:   "DELETE",
		Path:     "/entitya_clone_1",
		Response: `{"acknowledged":true}`,
	}})
	defer ts.Close()
	es := NewElasticsearch(util.NewTestClient(t, ts.URL, ""), ts.URL, "1s")

	ack, err := es.DeleteIndex(context.Background(), "entitya_clone_1")
	if err != nil || !ack {
		t.Fatalf("Expected acknowledged delete, got ack=%v err=%v", ack, err)
	}
}

func TestRequestsCarryHeaders(t *testing.T) {
	ts := util.BuildTestServer(t, []*util.ServerSetup{{
		Method:   "PUT",
		Path:     "/entitya/_settings",
		Response: `{"acknowledged":true}`,
	}})
	defer ts.Close()
	es := NewElasticsearch(util.NewTestClient(t, ts.URL, "Authorization: Basic Zm9vOmJhcg=="), ts.URL, "1s")

	ctx := util.WithRunID(context.Background(), "run-7")
	if _, err := es.UpdateSettings(ctx, "entitya", map[string]interface{}{RefreshIntervalSetting: "1s"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	headers := ts.Headers()
	if len(headers) != 1 {
		t.Fatalf("Expected one request, got %d", len(headers))
	}
	if headers[0].Get("Authorization") != "Basic Zm9vOmJhcg==" {
		t.Fatalf("Authorization header missing, got %q", headers[0].Get("Authorization"))
	}
	if headers[0].Get(util.RunIDHeader) != "run-7" {
		t.Fatalf("Run header missing, got %q", headers[0].Get(util.RunIDHeader))
	}
}
