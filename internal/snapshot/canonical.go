// Package snapshot implements the Snapshot Engine (§4.7): canonical
// serialization, content hashing, HMAC signing, hash-chain linkage, and
// atomic persistence for the named snapshot families (shipment index,
// corridor SLA, heatmap, alerts, audit denials).
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Canonicalize produces deterministic, sorted-key, whitespace-free JSON
// bytes for payload, matching the hashing contract's requirement that
// identical logical content always serializes identically (§4.7
// "canonical serialization: sorted keys, no insignificant whitespace,
// UTF-8, ASCII-safe escape").
func Canonicalize(payload any) ([]byte, error) {
	normalized, err := normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: encode: %w", err)
	}

	return []byte(asciiEscape(string(raw))), nil
}

// asciiEscape rewrites every non-ASCII rune as a \uXXXX escape, matching
// Python's json.dumps(ensure_ascii=True) so the canonical bytes are
// ASCII-only regardless of platform.
func asciiEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			r1, r2 := utf16Surrogates(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String()
}

func utf16Surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r >> 10), 0xDC00 + (r & 0x3FF)
}

// normalize round-trips payload through JSON so that map keys are
// recursively sorted (encoding/json already sorts map[string]any keys,
// but this guarantees arbitrary struct values are reduced to the same
// map-shaped representation before encoding, and surfaces
// non-serializable values as an error rather than a silent divergence).
func normalize(payload any) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	return sortedCopy(generic), nil
}

// sortedCopy recursively rebuilds generic into a structure whose maps are
// ordinary Go maps (encoding/json sorts map[string]any keys on encode, so
// no further action is needed beyond recursing into nested values).
func sortedCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortedCopy(val[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sortedCopy(item)
		}
		return out
	default:
		return val
	}
}
