package util

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	v "github.com/hashicorp/go-version"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

// CloneMinVersion is the first elasticsearch release shipping the clone index API.
const CloneMinVersion = "7.4.0"

var (
	clientInit sync.Once
	client7    *es7.Client
	clientErr  error
)

// ClientOptions configure the elasticsearch client.
type ClientOptions struct {
	URL string
	// Header is an optional `Name: value` header sent with every request.
	Header      string
	Sniff       bool
	Healthcheck bool
}

// NewClient instantiates the shared es7 client once.
func NewClient(opts ClientOptions) (*es7.Client, error) {
	clientInit.Do(func() {
		client7, clientErr = NewESClient(opts)
		if clientErr == nil {
			log.Println("elasticsearch client instantiated for", GetESURL(opts.URL))
		}
	})
	return client7, clientErr
}

// NewESClient returns a new, unshared es7 client.
func NewESClient(opts ClientOptions) (*es7.Client, error) {
	loggerT := log.New()
	wrappedLoggerDebug := &WrapKitLoggerDebug{loggerT}
	wrappedLoggerError := &WrapKitLoggerError{loggerT}

	shared := HTTPClient()
	esHttpClient := &http.Client{
		Timeout:   shared.Timeout,
		Transport: NewCustomESTransport(shared.Transport, opts.Header),
	}

	c, err := es7.NewClient(
		es7.SetURL(GetESURL(opts.URL)),
		es7.SetRetrier(NewRetrier()),
		es7.SetSniff(opts.Sniff),
		es7.SetHealthcheck(opts.Healthcheck),
		es7.SetHttpClient(esHttpClient),
		es7.SetErrorLog(wrappedLoggerError),
		es7.SetInfoLog(wrappedLoggerDebug),
		es7.SetTraceLog(wrappedLoggerDebug),
	)
	if err != nil {
		return nil, fmt.Errorf("error while initializing elastic v7 client: %v", err)
	}
	return c, nil
}

// GetESURL returns elasticsearch url with escaped auth
func GetESURL(esURL string) string {
	if strings.Contains(esURL, "@") && strings.Contains(esURL, "://") {
		splitIndex := strings.LastIndex(esURL, "@")
		protocolWithCredentials := strings.SplitN(esURL[0:splitIndex], "://", 2)
		credentials := protocolWithCredentials[1]
		protocol := protocolWithCredentials[0]
		host := esURL[splitIndex+1:]

		credentialSeparator := strings.Index(credentials, ":")
		if credentialSeparator < 0 {
			return esURL
		}
		username := credentials[0:credentialSeparator]
		password := credentials[credentialSeparator+1:]
		esURL = protocol + "://" + url.PathEscape(username) + ":" + url.PathEscape(password) + "@" + host
	}
	return esURL
}

// SupportsClone reports whether an elasticsearch release can serve clone index requests.
func SupportsClone(esVersion string) (bool, error) {
	current, err := v.NewVersion(esVersion)
	if err != nil {
		return false, fmt.Errorf("error while parsing the elastic version %q: %v", esVersion, err)
	}
	required, _ := v.NewVersion(CloneMinVersion)
	return current.GreaterThanOrEqual(required), nil
}
