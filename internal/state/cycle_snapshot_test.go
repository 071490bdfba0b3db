package state

import (
	"context"
	"errors"
	"testing"
)

type memoryStore struct {
	kv      map[string]string
	failGet bool
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.failGet {
		return "", false, errors.New("store unavailable")
	}
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	if s.kv == nil {
		s.kv = make(map[string]string)
	}
	s.kv[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	delete(s.kv, key)
	return nil
}

func (s *memoryStore) Close() error { return nil }

func TestCycleSnapshotRoundtrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	snap := CycleSnapshot{
		TimeMS:           1767312000000,
		OpenPositions:    3,
		TotalExposureUSD: 300,
		PairsSkipped:     1,
		LastError:        "bitget timeout",
	}
	if err := SaveCycleSnapshot(ctx, store, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := LoadCycleSnapshot(ctx, store)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != snap {
		t.Fatalf("roundtrip mismatch:\n%+v\n%+v", got, snap)
	}
}

func TestCycleSnapshotMissing(t *testing.T) {
	_, ok, err := LoadCycleSnapshot(context.Background(), &memoryStore{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("empty store should report no snapshot")
	}
}

func TestCycleSnapshotInvalidPayload(t *testing.T) {
	store := &memoryStore{kv: map[string]string{CycleSnapshotKey: "{not json"}}
	if _, ok, err := LoadCycleSnapshot(context.Background(), store); err == nil || ok {
		t.Fatalf("corrupt payload: ok=%v err=%v", ok, err)
	}
}

func TestCycleSnapshotNilStore(t *testing.T) {
	if err := SaveCycleSnapshot(context.Background(), nil, CycleSnapshot{}); err != nil {
		t.Fatalf("save to nil store: %v", err)
	}
	if _, ok, err := LoadCycleSnapshot(context.Background(), nil); err != nil || ok {
		t.Fatalf("load from nil store: ok=%v err=%v", ok, err)
	}
}

func TestCycleSnapshotStoreError(t *testing.T) {
	store := &memoryStore{failGet: true}
	if _, _, err := LoadCycleSnapshot(context.Background(), store); err == nil {
		t.Fatal("store failure must surface")
	}
}
