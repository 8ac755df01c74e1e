package stringsx

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// JoinStrings works as strings.Join, but can receive arbitrary number of strings
// The separator string sep is placed between elements in the resulting string.
func JoinStrings(sep string, elems ...string) string {
	return strings.Join(elems, sep)
}

func RedactedDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse dsn")
	}

	return u.Redacted(), nil
}

// MetricName replaces every rune prometheus does not accept in a metric name
// with an underscore.
func MetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}
