package store

import "testing"

func TestMemStoreSetGetDelete(t *testing.T) {
	s := NewMemStore()
	if err := s.Set("registry", "a1", []byte("payload")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get("registry", "a1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", v, ok, err)
	}
	if string(v) != "payload" {
		t.Fatalf("Get() value = %q, want payload", v)
	}

	s.Delete("registry", "a1")
	_, ok, _ = s.Get("registry", "a1")
	if ok {
		t.Fatal("expected key to be gone after Delete")
	}
}

func TestMemStoreNamespaceIsolation(t *testing.T) {
	s := NewMemStore()
	s.Set("a", "k", []byte("1"))
	s.Set("b", "k", []byte("2"))

	va, _, _ := s.Get("a", "k")
	vb, _, _ := s.Get("b", "k")
	if string(va) != "1" || string(vb) != "2" {
		t.Fatalf("namespace values got mixed up: a=%q b=%q", va, vb)
	}
}

func TestMemStoreMetrics(t *testing.T) {
	s := NewMemStore()
	s.Set("ns", "k", []byte("v"))
	s.Get("ns", "k")
	s.Delete("ns", "k")

	m := s.Metrics()
	if m.Sets != 1 || m.Gets != 1 || m.Deletes != 1 {
		t.Fatalf("Metrics() = %+v, want 1/1/1", m)
	}
}

func TestMemStoreGetMissingKeyReturnsFalse(t *testing.T) {
	s := NewMemStore()
	v, ok, err := s.Get("ns", "missing")
	if err != nil || ok || v != nil {
		t.Fatalf("Get() = %v, %v, %v, want nil, false, nil", v, ok, err)
	}
}

func TestMemStoreKeysListsNamespace(t *testing.T) {
	s := NewMemStore()
	s.Set("ns", "a", []byte("1"))
	s.Set("ns", "b", []byte("2"))

	keys, err := s.Keys("ns")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 entries", keys)
	}
}
