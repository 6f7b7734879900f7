package cache

import (
	"net/url"
	"sort"
	"strings"
)

// BuildKey derives the cache key for a backend path and its query
// parameters. Parameters are sorted so equivalent requests share a key.
func BuildKey(path string, params url.Values) string {
	path = normalizePath(path)
	if len(params) == 0 {
		return path
	}

	names := make([]string, 0, len(params))
	for name := range params {
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	builder.Grow(len(path) + 16*len(names))
	builder.WriteString(path)
	separator := byte('?')
	for _, name := range names {
		values := append([]string(nil), params[name]...)
		sort.Strings(values)
		if len(values) == 0 {
			values = []string{""}
		}
		for _, value := range values {
			builder.WriteByte(separator)
			separator = '&'
			builder.WriteString(url.QueryEscape(name))
			builder.WriteByte('=')
			builder.WriteString(url.QueryEscape(value))
		}
	}
	return builder.String()
}

// MatchKey reports whether key is keyOrPrefix itself or a key nested
// under it ("/api/itr-forms" matches "/api/itr-forms/7" and
// "/api/itr-forms?year=2024" but not "/api/itr-forms-archive").
func MatchKey(key string, keyOrPrefix string) bool {
	if keyOrPrefix == "" {
		return false
	}
	if key == keyOrPrefix {
		return true
	}
	if !strings.HasPrefix(key, keyOrPrefix) {
		return false
	}
	if strings.HasSuffix(keyOrPrefix, "/") || strings.HasSuffix(keyOrPrefix, "?") {
		return true
	}
	next := key[len(keyOrPrefix)]
	return next == '/' || next == '?'
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
