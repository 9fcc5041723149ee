package query

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Key identifies a cached query. Keys are hierarchical: ["user", "detail",
// "42"] sits under ["user", "detail"] and ["user"].
type Key []any

// Hash returns a stable string form of k. Map elements are encoded with
// sorted keys, so equal filters hash equally.
func (k Key) Hash() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%#v", []any(k))
	}
	return string(b)
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if !reflect.DeepEqual(normalize(k[i]), normalize(prefix[i])) {
			return false
		}
	}
	return true
}

// normalize routes a key element through JSON so 1 and 1.0 or a struct and
// its map form compare equal.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// Auth keys.
func AuthAllKey() Key     { return Key{"auth"} }
func AuthUserKey() Key    { return Key{"auth", "user"} }
func AuthSessionKey() Key { return Key{"auth", "session"} }

// User keys.
func UserAllKey() Key     { return Key{"user"} }
func UserListsKey() Key   { return Key{"user", "list"} }
func UserDetailsKey() Key { return Key{"user", "detail"} }

func UserListKey(filters string) Key {
	return append(UserListsKey(), map[string]any{"filters": filters})
}

func UserDetailKey(id string) Key {
	return append(UserDetailsKey(), id)
}
