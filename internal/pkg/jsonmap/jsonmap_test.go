package jsonmap

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDecodeTolerant(t *testing.T) {
	if got := Decode(nil); got == nil || len(got) != 0 {
		t.Fatalf("nil decode = %v", got)
	}
	if got := Decode(datatypes.JSON([]byte("not json"))); got == nil || len(got) != 0 {
		t.Fatalf("garbage decode = %v", got)
	}
	got := Decode(datatypes.JSON([]byte(`{"a":1}`)))
	if got["a"] != float64(1) {
		t.Fatalf("decode = %v", got)
	}
}

func TestEncodeNilIsEmptyObject(t *testing.T) {
	if got := string(Encode(nil)); got != "{}" {
		t.Fatalf("nil encode = %q", got)
	}
	if got := string(EncodeList(nil)); got != "[]" {
		t.Fatalf("nil list encode = %q", got)
	}
}

func TestMergeNestedObjects(t *testing.T) {
	base := map[string]interface{}{
		"keep": "me",
		"nested": map[string]interface{}{
			"a": 1,
			"b": 2,
		},
	}
	incoming := map[string]interface{}{
		"new": true,
		"nested": map[string]interface{}{
			"b": 3,
			"c": 4,
		},
	}
	got := Merge(base, incoming)
	if got["keep"] != "me" || got["new"] != true {
		t.Fatalf("top level merge = %v", got)
	}
	nested := got["nested"].(map[string]interface{})
	if nested["a"] != 1 || nested["b"] != 3 || nested["c"] != 4 {
		t.Fatalf("nested merge = %v", nested)
	}
}

func TestMergeScalarReplacesObject(t *testing.T) {
	base := map[string]interface{}{"k": map[string]interface{}{"a": 1}}
	got := Merge(base, map[string]interface{}{"k": "flat"})
	if got["k"] != "flat" {
		t.Fatalf("merge = %v", got)
	}
}
