package meta

import (
	"encoding/json"
	"testing"
)

func TestSetGetDelMergeClone(t *testing.T) {
	attrs := New(nil)
	attrs.Set("department", "工程部")
	if v, ok := attrs.Get("department"); !ok || v != "工程部" {
		t.Fatalf("get failed")
	}
	attrs.Merge(New(map[string]string{"customer": "ABC公司"}))
	if attrs.Value("customer") != "ABC公司" {
		t.Fatalf("merge failed")
	}
	cloned := attrs.Clone()
	if len(cloned) != 2 || cloned["department"] != "工程部" {
		t.Fatalf("clone failed: %+v", cloned)
	}
	attrs.Del("department")
	if _, ok := attrs.Get("department"); ok {
		t.Fatalf("del failed")
	}
	if cloned.Value("department") != "工程部" {
		t.Fatalf("clone must be independent")
	}
}

func TestSetRespectsLimits(t *testing.T) {
	attrs := New(nil)
	longVal := make([]byte, MaxValLen+1)
	for i := range longVal {
		longVal[i] = 'v'
	}
	attrs.Set("k", string(longVal))
	if _, ok := attrs.Get("k"); ok {
		t.Fatalf("oversized value must be dropped")
	}
	attrs.Set("", "v")
	if len(attrs) != 0 {
		t.Fatalf("empty key must be dropped")
	}
}

func TestValidateLimits(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i < MaxPairs+1; i++ {
		pairs[string(rune('a'+i%26))+"k"+string(rune('a'+i/26))] = "v"
	}
	if err := New(pairs).Validate(); err == nil {
		t.Fatalf("expected too many pairs")
	}
}

func TestStableJSONRoundtrip(t *testing.T) {
	attrs := New(map[string]string{"b": "2", "a": "1"})
	b, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"1","b":"2"}` {
		t.Fatalf("unexpected encoding: %s", b)
	}
	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Value("a") != "1" || back.Value("b") != "2" {
		t.Fatalf("roundtrip mismatch: %+v", back)
	}
	var empty Metadata
	if err := json.Unmarshal([]byte("null"), &empty); err != nil || empty == nil {
		t.Fatalf("null must decode to empty map")
	}
}
