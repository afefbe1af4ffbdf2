package discovery

import "maps"

// ConfidenceKey is the reserved slot key holding the model's per-field confidence map.
const ConfidenceKey = "_confidence"

// Slots maps slot names to extracted values. Values are opaque: whatever the
// model or an operator supplied is stored without coercion.
type Slots map[string]any

// Has reports whether the key is present, regardless of its value.
func (s Slots) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Clone returns a shallow copy; a nil map clones to an empty one.
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	maps.Copy(out, s)
	return out
}

// Override shallow-merges patch into the map, overwriting only the provided
// keys. Keys outside the slot schema are dropped and returned.
func (s Slots) Override(patch map[string]any) (ignored []string) {
	for key, value := range patch {
		if !IsSlotKey(key) {
			ignored = append(ignored, key)
			continue
		}
		s[key] = value
	}
	return ignored
}

// ApplyExtraction writes non-null extracted fields (last write wins) and
// replaces the confidence map when one was returned.
func (s Slots) ApplyExtraction(fields map[string]any, confidence map[string]any) {
	for _, slot := range RequiredSlots {
		if value, ok := fields[slot.Name]; ok && value != nil {
			s[slot.Name] = value
		}
	}
	if confidence != nil {
		s[ConfidenceKey] = confidence
	}
}
