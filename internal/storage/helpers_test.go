package storage

import (
	"encoding/json"
	"reflect"
	"testing"
)

func assertSameJSON(t *testing.T, want, got string) {
	t.Helper()
	var a, b any
	if err := json.Unmarshal([]byte(want), &a); err != nil {
		t.Fatalf("want is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(got), &b); err != nil {
		t.Fatalf("got is not JSON: %v: %s", err, got)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("documents differ\n got: %s\nwant: %s", got, want)
	}
}
