package util

import (
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	urlRe        = regexp.MustCompile(`^https?://(www.)?.+\..+$`)
	credentialRe = regexp.MustCompile(`\/\/(?P<username>.+):.+@`)
)

// WrapKitLoggerDebug adapts logrus to the elastic.Logger interface for
// info and trace output of the elasticsearch client.
type WrapKitLoggerDebug struct {
	*log.Logger
}

func (logger WrapKitLoggerDebug) Printf(format string, vars ...interface{}) {
	cleanSensitiveData(vars)
	log.Debugln("[ElasticSearch: Trace] => ", fmt.Sprintf(format, vars...))
}

// WrapKitLoggerError adapts logrus to the elastic.Logger interface for
// the error output of the elasticsearch client.
type WrapKitLoggerError struct {
	*log.Logger
}

func (logger WrapKitLoggerError) Printf(format string, vars ...interface{}) {
	cleanSensitiveData(vars)

	formattedStr := fmt.Sprintf(format, vars...)
	if DebugDeprecationWarns(formattedStr) {
		return
	}

	log.Errorln("[ElasticSearch: Error] => ", formattedStr)
}

// DebugDeprecationWarns logs deprecation warnings at debug level and
// reports whether formattedStr was one.
func DebugDeprecationWarns(formattedStr string) bool {
	if strings.Contains(strings.ToLower(formattedStr), "deprecation") {
		log.Debug("[ElasticSearch: Trace] => ", formattedStr)
		return true
	}

	return false
}

// cleanSensitiveData masks the password of any URL found in vars.
func cleanSensitiveData(vars []interface{}) {
	for index, passedVar := range vars {
		stringedVar, ok := passedVar.(string)
		if !ok {
			continue
		}

		if !urlRe.MatchString(stringedVar) {
			continue
		}

		vars[index] = credentialRe.ReplaceAllString(stringedVar, "//${username}:***@")
	}
}
