package chart

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeObject_PreservesKeyOrder(t *testing.T) {
	t.Parallel()

	obj, err := decodeObject([]byte(`{"zeta":1,"alpha":[1,2],"mid":{"b":1,"a":2},"alpha":[3]}`))
	if err != nil {
		t.Fatalf("decodeObject() error = %v", err)
	}
	if want := []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(obj.keys, want) {
		t.Errorf("keys = %v, want %v", obj.keys, want)
	}
	nested, ok := obj.values["mid"].(*object)
	if !ok {
		t.Fatalf("mid = %T, want *object", obj.values["mid"])
	}
	if want := []string{"b", "a"}; !reflect.DeepEqual(nested.keys, want) {
		t.Errorf("nested keys = %v, want %v", nested.keys, want)
	}
	// Duplicate keys keep their first position and the last value.
	if arr, _ := obj.values["alpha"].([]any); len(arr) != 1 {
		t.Errorf("alpha = %v, want the last value", obj.values["alpha"])
	}
}

func TestDecodeObject_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"trailing data", `{"a":1} extra`, ErrNoJSONObject},
		{"two objects", `{"a":1}{"b":2}`, ErrNoJSONObject},
		{"truncated", `{"a":[1,2`, ErrNoJSONObject},
		{"string", `"hello"`, ErrNotObject},
		{"number", `42`, ErrNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeObject([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("decodeObject(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestExtractObject_PrefersWholeString(t *testing.T) {
	t.Parallel()

	obj, err := extractObject(`{"title":"outer","note":"{\"title\":\"inner\"}"}`)
	if err != nil {
		t.Fatalf("extractObject() error = %v", err)
	}
	if obj.values["title"] != "outer" {
		t.Errorf("title = %v, want outer", obj.values["title"])
	}
}

func TestExtractObject_BraceSpan(t *testing.T) {
	t.Parallel()

	obj, err := extractObject("The model said: {\"X\": [1, 2]}. Done.")
	if err != nil {
		t.Fatalf("extractObject() error = %v", err)
	}
	if _, ok := obj.values["X"]; !ok {
		t.Errorf("values = %v, want key X", obj.values)
	}
}

func TestFromMap_SortsKeys(t *testing.T) {
	t.Parallel()

	obj := fromMap(map[string]any{"b": 1, "a": map[string]any{"d": 1, "c": 2}, "c": []float64{1}})
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(obj.keys, want) {
		t.Errorf("keys = %v, want %v", obj.keys, want)
	}
	nested, ok := obj.values["a"].(*object)
	if !ok || !reflect.DeepEqual(nested.keys, []string{"c", "d"}) {
		t.Errorf("nested = %+v, want sorted object", obj.values["a"])
	}
	if arr, ok := obj.values["c"].([]any); !ok || len(arr) != 1 {
		t.Errorf("c = %#v, want []any{1}", obj.values["c"])
	}
}
