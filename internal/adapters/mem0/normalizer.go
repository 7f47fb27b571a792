// Package mem0 reconciles the two response shapes the vector store's add/
// search calls can return into one internal shape. This is the only place
// in voxbridge that branches on the raw wire shape — everything downstream
// consumes ports.NormalizedItem.
//
// Grounded line for line on
// _examples/original_source/src/services/mem0_compat.py's
// Mem0ResponseNormalizer. Deliberately stdlib-only (plain map[string]any/
// []any traversal over json.Unmarshal output): the whole point of this
// component is branching on untyped shapes, and a schema/validation library
// would only add indirection over that.
package mem0

import (
	"fmt"

	"github.com/johnbuck/voxbridge/internal/ports"
)

// NormalizeAddResponse handles add()'s one documented shape:
// {"results": [{"id", "memory"|"text"|"data", "event", "score", "metadata"}]}.
// Anything else yields an empty slice rather than an error — the normalizer
// never raises on an unexpected shape.
func NormalizeAddResponse(response any) []ports.NormalizedItem {
	if response == nil {
		return nil
	}

	obj, ok := response.(map[string]any)
	if !ok {
		return nil
	}
	rawResults, ok := obj["results"]
	if !ok {
		return nil
	}
	results, ok := rawResults.([]any)
	if !ok || len(results) == 0 {
		return nil
	}

	normalized := make([]ports.NormalizedItem, 0, len(results))
	for _, raw := range results {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		normalized = append(normalized, ports.NormalizedItem{
			ID:       stringField(item, "id"),
			Text:     firstNonEmptyString(item, "memory", "text", "data"),
			Event:    stringFieldDefault(item, "event", "UNKNOWN"),
			Score:    floatField(item, "score"),
			Metadata: mapField(item, "metadata"),
		})
	}
	return normalized
}

// NormalizeSearchResponse handles both of search()'s shapes: the current
// bare-list format (field priority memory > data > text) and the future
// {"results": [...]} dict format (field priority data > memory > text).
// event is always "NONE": search doesn't report an event type.
func NormalizeSearchResponse(response any) []ports.NormalizedItem {
	if response == nil {
		return nil
	}

	if obj, ok := response.(map[string]any); ok {
		rawResults, ok := obj["results"]
		if !ok {
			return nil
		}
		results, ok := rawResults.([]any)
		if !ok || len(results) == 0 {
			return nil
		}
		normalized := make([]ports.NormalizedItem, 0, len(results))
		for _, raw := range results {
			normalized = append(normalized, normalizeSearchItem(raw, "data", "memory", "text"))
		}
		return normalized
	}

	if list, ok := response.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		normalized := make([]ports.NormalizedItem, 0, len(list))
		for _, raw := range list {
			normalized = append(normalized, normalizeSearchItem(raw, "memory", "data", "text"))
		}
		return normalized
	}

	return nil
}

func normalizeSearchItem(raw any, fieldPriority ...string) ports.NormalizedItem {
	if s, ok := raw.(string); ok {
		return ports.NormalizedItem{Text: s, Event: "NONE"}
	}
	item, ok := raw.(map[string]any)
	if !ok {
		return ports.NormalizedItem{Text: fmt.Sprintf("%v", raw), Event: "NONE"}
	}
	return ports.NormalizedItem{
		ID:       stringField(item, "id"),
		Text:     firstNonEmptyString(item, fieldPriority...),
		Score:    floatField(item, "score"),
		Event:    "NONE",
		Metadata: mapField(item, "metadata"),
	}
}

func stringField(m map[string]any, key string) string {
	return stringFieldDefault(m, key, "")
}

func stringFieldDefault(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// firstNonEmptyString returns the first non-empty string field found, in
// priority order, degrading unknown non-string values to their Go string
// representation rather than dropping them.
func firstNonEmptyString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func floatField(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}

func mapField(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if mm, ok := v.(map[string]any); ok {
		return mm
	}
	return nil
}
