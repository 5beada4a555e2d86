package utils

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/geniusappsio/tramita/pkg/types"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParseFilterFromQuery reads ?search=&limit=&page=&filter[key]=value.
func ParseFilterFromQuery(values url.Values) types.Filter {
	f := types.Filter{
		Search: strings.TrimSpace(values.Get("search")),
		Filter: make(map[string]interface{}),
		Limit:  DefaultLimit,
		Page:   1,
	}

	if l, err := strconv.Atoi(values.Get("limit")); err == nil && l > 0 {
		f.Limit = l
		if l > MaxLimit {
			f.Limit = MaxLimit
		}
	}
	if p, err := strconv.Atoi(values.Get("page")); err == nil && p > 0 {
		f.Page = p
	}
	f.Offset = (f.Page - 1) * f.Limit

	for key, vals := range values {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") && len(vals) > 0 {
			name := key[len("filter[") : len(key)-1]
			if name != "" && vals[0] != "" {
				f.Filter[name] = vals[0]
			}
		}
	}

	return f
}
