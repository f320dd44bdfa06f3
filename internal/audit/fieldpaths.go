package audit

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// CollectFieldPaths walks a JSON-like value and returns the path of every
// leaf: object members as "prefix.key", array elements as "prefix[i]".
// Dates are leaves. nil produces no paths, so a null entity discloses
// nothing. Object keys are visited in sorted order to keep output stable.
//
// Leaf values are never read into the result; only their position is.
func CollectFieldPaths(v any, prefix string) []string {
	paths := []string{}
	collect(v, prefix, &paths)
	return paths
}

func collect(v any, prefix string, paths *[]string) {
	switch x := v.(type) {
	case nil:
		return
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collect(x[k], join(prefix, k), paths)
		}
		return
	case []any:
		for i, el := range x {
			collect(el, prefix+"["+strconv.Itoa(i)+"]", paths)
		}
		return
	case time.Time, *time.Time, models.Date, *models.Date:
		leaf(prefix, paths)
		return
	case string, bool, float64, float32, int, int32, int64, json.Number:
		leaf(prefix, paths)
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return
		}
		collect(rv.Elem().Interface(), prefix, paths)
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return
		}
		if rv.Kind() == reflect.Map && rv.IsNil() {
			return
		}
		// Typed containers are reduced to the same tree encoding/json would
		// send, so paths match the serialized response.
		tree, err := ToJSONTree(v)
		if err != nil {
			leaf(prefix, paths)
			return
		}
		collect(tree, prefix, paths)
	default:
		leaf(prefix, paths)
	}
}

// leaf records prefix as-is; a scalar at the root yields the empty path.
func leaf(prefix string, paths *[]string) {
	*paths = append(*paths, prefix)
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// ToJSONTree converts v into the generic tree (map[string]any, []any, scalars)
// that its JSON encoding decodes to.
func ToJSONTree(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}
