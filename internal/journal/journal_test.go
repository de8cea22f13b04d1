package journal

import (
	"errors"
	"testing"
)

func TestRecordAndRecent(t *testing.T) {
	j := New(3)
	j.Record("a", "first", nil, nil)
	j.Record("b", "second", errors.New("boom"), map[string]string{"jobId": "1"})

	recent := j.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[1].Cause != "boom" {
		t.Errorf("Cause = %q, want boom", recent[1].Cause)
	}
	if recent[1].Context["jobId"] != "1" {
		t.Errorf("Context[jobId] = %q, want 1", recent[1].Context["jobId"])
	}
}

func TestRecordEvictsOldestAtCapacity(t *testing.T) {
	j := New(2)
	j.Record("a", "one", nil, nil)
	j.Record("a", "two", nil, nil)
	j.Record("a", "three", nil, nil)

	recent := j.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Message != "two" || recent[1].Message != "three" {
		t.Errorf("recent = %+v, want [two three]", recent)
	}
}

func TestByKind(t *testing.T) {
	j := New(10)
	j.Record("auth", "a1", nil, nil)
	j.Record("transient", "t1", nil, nil)
	j.Record("auth", "a2", nil, nil)

	auth := j.ByKind("auth")
	if len(auth) != 2 {
		t.Fatalf("len(auth) = %d, want 2", len(auth))
	}
	if auth[0].Message != "a1" || auth[1].Message != "a2" {
		t.Errorf("auth = %+v", auth)
	}
}

func TestClear(t *testing.T) {
	j := New(10)
	j.Record("a", "one", nil, nil)
	j.Clear()
	if len(j.Recent(10)) != 0 {
		t.Errorf("expected empty journal after Clear")
	}
}

func TestExportProducesJSON(t *testing.T) {
	j := New(10)
	j.Record("auth", "bad key", nil, nil)
	data, err := j.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(data) == 0 || data[0] != '[' {
		t.Errorf("Export() = %q, want JSON array", data)
	}
}

func TestDefaultCapacity(t *testing.T) {
	j := New(0)
	if j.capacity != 100 {
		t.Errorf("capacity = %d, want 100", j.capacity)
	}
}
