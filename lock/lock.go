// Package lock keeps rebuild runs from overlapping by holding a document
// in a dedicated elasticsearch index while a run is in flight.
package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appbaseio/rebuild-indices/config"
	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

const (
	logTag = "[lock]"
	appID  = "rebuild-indices"
)

type lockDoc struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Elasticsearch is a migration.Lock backed by one document per key.
type Elasticsearch struct {
	client *es7.Client
	index  string
	owner  string
	now    func() time.Time
}

// NewElasticsearch returns a lock storing its documents in index.
func NewElasticsearch(client *es7.Client, index, owner string) *Elasticsearch {
	return &Elasticsearch{client: client, index: index, owner: owner, now: time.Now}
}

// Owner identifies this process: a hash of the machine id (or the hostname
// when unavailable) followed by a random suffix.
func Owner() string {
	host, err := machineid.ProtectedID(appID)
	if err != nil {
		log.Warnln(logTag, ": machine id unavailable, using hostname:", err)
		host = config.Hostname()
	} else if len(host) > 12 {
		host = host[:12]
	}
	return host + "-" + uuid.New().String()
}

// Acquire implements migration.Lock. An expired document is taken over.
func (l *Elasticsearch) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.now().UTC()
	doc := lockDoc{Owner: l.owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}

	_, err := l.client.Index().
		Index(l.index).
		Id(key).
		OpType("create").
		BodyJson(doc).
		Refresh("true").
		Do(ctx)
	if err == nil {
		return true, nil
	}
	if !es7.IsConflict(err) {
		return false, err
	}

	held, seqNo, primaryTerm, err := l.get(ctx, key)
	if err != nil {
		return false, err
	}
	if held == nil {
		// released between our create and get; the next attempt can race for it
		return false, nil
	}
	if held.Owner == l.owner {
		return true, nil
	}
	if now.Before(held.ExpiresAt) {
		log.Infoln(logTag, ": lock", key, "held by", held.Owner, "until", held.ExpiresAt.Format(time.RFC3339))
		return false, nil
	}

	log.Warnln(logTag, ": taking over lock", key, "expired at", held.ExpiresAt.Format(time.RFC3339), "from", held.Owner)
	_, err = l.client.Index().
		Index(l.index).
		Id(key).
		IfSeqNo(seqNo).
		IfPrimaryTerm(primaryTerm).
		BodyJson(doc).
		Refresh("true").
		Do(ctx)
	if es7.IsConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release implements migration.Lock. Releasing a lock that is gone is a no-op.
func (l *Elasticsearch) Release(ctx context.Context, key string) error {
	held, seqNo, primaryTerm, err := l.get(ctx, key)
	if err != nil {
		return err
	}
	if held == nil {
		return nil
	}
	if held.Owner != l.owner {
		return errors.ErrLockNotHeld
	}
	_, err = l.client.Delete().
		Index(l.index).
		Id(key).
		IfSeqNo(seqNo).
		IfPrimaryTerm(primaryTerm).
		Refresh("true").
		Do(ctx)
	if es7.IsNotFound(err) {
		return nil
	}
	return err
}

func (l *Elasticsearch) get(ctx context.Context, key string) (*lockDoc, int64, int64, error) {
	res, err := l.client.Get().
		Index(l.index).
		Id(key).
		Do(ctx)
	if es7.IsNotFound(err) {
		return nil, 0, 0, nil
	}
	if err != nil {
		return nil, 0, 0, err
	}
	if !res.Found {
		return nil, 0, 0, nil
	}
	var doc lockDoc
	if err := json.Unmarshal(res.Source, &doc); err != nil {
		return nil, 0, 0, fmt.Errorf("decoding lock %s: %w", key, err)
	}
	var seqNo, primaryTerm int64
	if res.SeqNo != nil {
		seqNo = *res.SeqNo
	}
	if res.PrimaryTerm != nil {
		primaryTerm = *res.PrimaryTerm
	}
	return &doc, seqNo, primaryTerm, nil
}
