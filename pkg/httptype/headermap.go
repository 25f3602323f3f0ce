package httptype

import "strings"

// wellKnown gives the canonical capitalization for headers this package
// produces or reads often; anything else keeps its insertion-time form.
var wellKnown = map[string]string{
	"content-type":      "Content-Type",
	"content-length":     "Content-Length",
	"content-encoding":   "Content-Encoding",
	"content-disposition": "Content-Disposition",
	"transfer-encoding":  "Transfer-Encoding",
	"etag":               "ETag",
	"last-modified":      "Last-Modified",
	"expires":            "Expires",
	"vary":               "Vary",
	"allow":              "Allow",
	"host":               "Host",
	"origin":             "Origin",
	"referer":            "Referer",
	"cookie":             "Cookie",
	"set-cookie":         "Set-Cookie",
	"connection":         "Connection",
	"date":               "Date",
}

// HeaderMap is a case-insensitive, insertion-ordered multimap. Each key
// retains one canonical display form: the well-known capitalization when
// one is registered, otherwise whatever case it was first inserted with. A
// side table maps the case-folded key to that canonical form so lookups and
// removals are case-insensitive without losing display fidelity.
type HeaderMap struct {
	canonical map[string]string   // folded -> canonical display form
	values    map[string][]string // canonical -> values, in insertion order
	order     []string            // canonical keys, first-insertion order
}

// NewHeaderMap returns an empty HeaderMap.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{
		canonical: map[string]string{},
		values:    map[string][]string{},
	}
}

func (h *HeaderMap) displayForm(key string) string {
	folded := strings.ToLower(key)
	if canon, ok := wellKnown[folded]; ok {
		return canon
	}
	return key
}

// Add appends value under key, preserving any existing values for that key.
func (h *HeaderMap) Add(key, value string) {
	folded := strings.ToLower(key)
	canon, ok := h.canonical[folded]
	if !ok {
		canon = h.displayForm(key)
		h.canonical[folded] = canon
		h.order = append(h.order, canon)
	}
	h.values[canon] = append(h.values[canon], value)
}

// Set replaces all existing values for key with a single value.
func (h *HeaderMap) Set(key, value string) {
	folded := strings.ToLower(key)
	canon, ok := h.canonical[folded]
	if !ok {
		canon = h.displayForm(key)
		h.canonical[folded] = canon
		h.order = append(h.order, canon)
	}
	h.values[canon] = []string{value}
}

// Get returns the first value for key, or "" if absent.
func (h *HeaderMap) Get(key string) string {
	vs := h.Values(key)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value for key, in insertion order.
func (h *HeaderMap) Values(key string) []string {
	folded := strings.ToLower(key)
	canon, ok := h.canonical[folded]
	if !ok {
		return nil
	}
	return h.values[canon]
}

// Has reports whether key has at least one value.
func (h *HeaderMap) Has(key string) bool {
	_, ok := h.canonical[strings.ToLower(key)]
	return ok
}

// Del removes every value for key.
func (h *HeaderMap) Del(key string) {
	folded := strings.ToLower(key)
	canon, ok := h.canonical[folded]
	if !ok {
		return
	}
	delete(h.canonical, folded)
	delete(h.values, canon)
	for i, k := range h.order {
		if k == canon {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Keys returns the canonical display form of every key, in first-insertion
// order.
func (h *HeaderMap) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}
