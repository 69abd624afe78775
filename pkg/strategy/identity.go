package strategy

import (
	"hash/fnv"
	"reflect"
	"unicode"
)

const defaultLabel = "001"

// ID names a strategy instance. Name comes from the concrete hook type,
// label from the user. Equality and hashing are defined over both fields.
type ID struct {
	Name  string
	Label string
}

// NewID derives the name from the dynamic type of hooks, unwrapping
// pointers. An empty or invalid label falls back to "001".
func NewID(hooks interface{}, label string) ID {
	t := reflect.TypeOf(hooks)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := "Strategy"
	if t != nil && t.Name() != "" {
		name = t.Name()
	}

	if !validLabel(label) {
		label = defaultLabel
	}

	return ID{Name: name, Label: label}
}

func (id ID) String() string {
	return id.Name + "-" + id.Label
}

func (id ID) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id.String()))
	return h.Sum64()
}

func validLabel(label string) bool {
	if label == "" {
		return false
	}
	for _, r := range label {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
