package utils

import (
	"net/http"
	"net/url"
	"strings"
)

// ParseQuery parses a raw query string into a value map with
// lower-cased keys. WMS clients are inconsistent about parameter
// casing so the protocol keys are matched case insensitively.
func ParseQuery(query string) (m url.Values, err error) {
	m = make(url.Values)
	for query != "" {
		key := query
		if i := strings.Index(key, "&"); i >= 0 {
			key, query = key[:i], key[i+1:]
		} else {
			query = ""
		}
		if key == "" {
			continue
		}
		value := ""
		if i := strings.Index(key, "="); i >= 0 {
			key, value = key[:i], key[i+1:]
		}
		key, err1 := url.QueryUnescape(key)
		if err1 != nil {
			if err == nil {
				err = err1
			}
			continue
		}
		key = strings.ToLower(key)

		value, err1 = url.QueryUnescape(value)
		if err1 != nil {
			if err == nil {
				err = err1
			}
			continue
		}

		m[key] = append(m[key], value)
	}
	return m, err
}

// ParseRemoteAddr resolves the client address for a request,
// preferring the X-Forwarded-For header set by the fronting proxy
// over the socket peer address.
func ParseRemoteAddr(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if len(forwarded) > 0 {
		addrs := strings.Split(forwarded, ",")
		return strings.TrimSpace(addrs[0])
	}
	return r.RemoteAddr
}
