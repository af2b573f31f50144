package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/buger/jsonparser"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

const logTag = "[admin]"

// Elasticsearch implements Admin on top of an olivere es7 client.
type Elasticsearch struct {
	client          *es7.Client
	url             string
	refreshInterval string
}

// NewElasticsearch returns an Admin for the cluster at url. refreshInterval
// is the steady-state value, e.g. "1s", read from the index builder config.
func NewElasticsearch(client *es7.Client, url, refreshInterval string) *Elasticsearch {
	return &Elasticsearch{client: client, url: url, refreshInterval: refreshInterval}
}

// RefreshInterval implements SettingsUpdater.
func (es *Elasticsearch) RefreshInterval() string {
	return es.refreshInterval
}

// UpdateSettings implements SettingsUpdater.
func (es *Elasticsearch) UpdateSettings(ctx context.Context, index string, settings map[string]interface{}) (bool, error) {
	res, err := es.client.IndexPutSettings(index).
		BodyJson(settings).
		Do(ctx)
	if err != nil {
		log.Errorln(logTag, ": error updating settings of index", index, ":", err)
		return false, err
	}
	return res.Acknowledged, nil
}

// CurrentRefreshInterval implements SettingsUpdater. Indices that never had
// the setting report the cluster default.
func (es *Elasticsearch) CurrentRefreshInterval(ctx context.Context, index string) (string, error) {
	res, err := es.client.PerformRequest(ctx, es7.PerformRequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/%s/_settings/%s", url.PathEscape(index), RefreshIntervalSetting),
		Params: url.Values{"include_defaults": []string{"true"}},
	})
	if err != nil {
		return "", err
	}
	if value, err := jsonparser.GetString(res.Body, index, "settings", "index", "refresh_interval"); err == nil {
		return value, nil
	}
	value, err := jsonparser.GetString(res.Body, index, "defaults", "index", "refresh_interval")
	if err != nil {
		return "", fmt.Errorf("refresh interval of index %s not found in response: %v", index, err)
	}
	return value, nil
}

// Clone implements Cloner. A source without index.blocks.write=true is
// answered with a 400 by the cluster.
func (es *Elasticsearch) Clone(ctx context.Context, source, target string) (bool, error) {
	res, err := es.client.PerformRequest(ctx, es7.PerformRequestOptions{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/%s/_clone/%s", url.PathEscape(source), url.PathEscape(target)),
	})
	if err != nil {
		log.Errorln(logTag, ": error cloning index", source, "into", target, ":", err)
		return false, err
	}
	ack, err := jsonparser.GetBoolean(res.Body, "acknowledged")
	if err != nil {
		return false, fmt.Errorf("clone of index %s: acknowledged flag missing from response: %v", source, err)
	}
	return ack, nil
}

// Version implements Cloner.
func (es *Elasticsearch) Version(ctx context.Context) (string, error) {
	return es.client.ElasticsearchVersion(es.url)
}

// ListIndices implements Catalog. Names are sorted.
func (es *Elasticsearch) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	res, err := es.client.IndexGetSettings(pattern).
		Do(ctx)
	if err != nil {
		if es7.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(res))
	for name := range res {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IndexExists implements Catalog.
func (es *Elasticsearch) IndexExists(ctx context.Context, name string) (bool, error) {
	return es.client.IndexExists(name).Do(ctx)
}

// CreateIndex implements Catalog.
func (es *Elasticsearch) CreateIndex(ctx context.Context, name string, body map[string]interface{}) (bool, error) {
	svc := es.client.CreateIndex(name)
	if len(body) > 0 {
		svc = svc.BodyJson(body)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		log.Errorln(logTag, ": error creating index", name, ":", err)
		return false, err
	}
	return res.Acknowledged, nil
}

// PutMapping implements Catalog.
func (es *Elasticsearch) PutMapping(ctx context.Context, name string, mapping map[string]interface{}) (bool, error) {
	res, err := es.client.PutMapping().
		Index(name).
		BodyJson(mapping).
		Do(ctx)
	if err != nil {
		log.Errorln(logTag, ": error updating mapping of index", name, ":", err)
		return false, err
	}
	return res.Acknowledged, nil
}

// DeleteIndex implements Catalog.
func (es *Elasticsearch) DeleteIndex(ctx context.Context, name string) (bool, error) {
	res, err := es.client.DeleteIndex(name).Do(ctx)
	if err != nil {
		log.Errorln(logTag, ": error deleting index", name, ":", err)
		return false, err
	}
	return res.Acknowledged, nil
}
