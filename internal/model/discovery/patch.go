package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Patch operation names (RFC 6902).
const (
	PatchAdd     = "add"
	PatchRemove  = "remove"
	PatchReplace = "replace"
)

// ErrInvalidPatch marks a patch document that cannot be decoded or applied.
var ErrInvalidPatch = errors.New("invalid slot patch")

// PatchOperation is one RFC 6902 operation against the slot map.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value"`
}

// DecodePatch parses an RFC 6902 document.
func DecodePatch(raw []byte) ([]PatchOperation, error) {
	var ops []PatchOperation
	if err := sonic.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	return ops, nil
}

// ApplyPatch applies ops to a copy of the map and returns the result. A
// replace on a missing path becomes an add and a remove of a missing path is
// skipped. Keys outside the slot schema are dropped from the result and
// returned in ignored. On error the receiver is unchanged.
func (s Slots) ApplyPatch(ops []PatchOperation) (patched Slots, ignored []string, err error) {
	current := s.Clone()
	if len(ops) == 0 {
		return current, nil, nil
	}

	currentJSON, err := sonic.Marshal(map[string]any(current))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal slots: %w", err)
	}

	patchJSON, err := sonic.Marshal(fixOperations(current, ops))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal patch operations: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}

	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}

	var result map[string]any
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return nil, nil, fmt.Errorf("%w: result is not an object: %w", ErrInvalidPatch, err)
	}

	patched = Slots{}
	for key, value := range result {
		if !IsSlotKey(key) {
			ignored = append(ignored, key)
			continue
		}
		patched[key] = value
	}
	return patched, ignored, nil
}

func fixOperations(doc Slots, ops []PatchOperation) []PatchOperation {
	root := map[string]any(doc)
	fixed := make([]PatchOperation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case PatchReplace:
			if !pathExists(root, op.Path) {
				op.Op = PatchAdd
			}
			fixed = append(fixed, op)
		case PatchRemove:
			if pathExists(root, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

func pathExists(doc any, path string) bool {
	if path == "" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}

	cur := doc
	for _, token := range strings.Split(path[1:], "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return false
			}
			cur = node[index]
		default:
			return false
		}
	}
	return true
}
