package client

import (
	"encoding/json"
	"fmt"

	"storefront/pkg/utils"
)

// envelope is a listing response reduced to its records and paging info.
type envelope struct {
	records     []map[string]any
	currentPage int
	totalPages  int
	total       int
}

// decodeEnvelope accepts either a bare JSON array of records or an object
// holding the records under listKey. The first of totalKeys present gives
// the total; without one the total is the record count. Elements that are
// not JSON objects are dropped.
func decodeEnvelope(body []byte, listKey string, totalKeys ...string) (envelope, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var env envelope
	switch v := doc.(type) {
	case []any:
		env.records = objects(v)
		env.total = len(env.records)
	case map[string]any:
		list, _ := v[listKey].([]any)
		env.records = objects(list)
		env.currentPage = utils.Int(firstOf(v, "currentPage", "page"))
		env.totalPages = utils.Int(firstOf(v, "totalPages", "pages"))
		if total := firstOf(v, totalKeys...); total != nil {
			env.total = utils.Int(total)
		} else {
			env.total = len(env.records)
		}
	default:
		return envelope{}, fmt.Errorf("%w: unexpected %T body", ErrMalformedResponse, doc)
	}

	if env.currentPage == 0 {
		env.currentPage = 1
	}
	if env.totalPages == 0 {
		env.totalPages = 1
	}
	return env, nil
}

func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
