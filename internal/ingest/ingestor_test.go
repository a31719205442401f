package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/log"
)

type mockStore struct {
	deleteCalls int
	deleted     int64
	deleteErr   error

	inserted  []curriculum.Chunk
	insertErr error
}

func (m *mockStore) DeleteScope(_ context.Context, _, _, _ string) (int64, error) {
	m.deleteCalls++
	return m.deleted, m.deleteErr
}

func (m *mockStore) InsertMany(_ context.Context, chunks []curriculum.Chunk) (int, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.inserted = append(m.inserted, chunks...)
	return len(chunks), nil
}

func TestIngestParsesSingleAndArray(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{
			name:    "single document object",
			payload: `{"unit_name": "Fractions", "chunks": "halves and quarters"}`,
			want:    1,
		},
		{
			name: "document array",
			payload: `[{"chunks": "one"},
			           {"chunks": "two"},
			           {"chunks": "three"}]`,
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			ing := New(store, log.NewNop())

			got, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(tt.payload), false)
			if err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Ingest() = %d, want %d", got, tt.want)
			}
			if len(store.inserted) != tt.want {
				t.Errorf("inserted %d chunks, want %d", len(store.inserted), tt.want)
			}
		})
	}
}

func TestIngestMalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "grade,subject\n3,math"},
		{"truncated", `[{"chunks": "one"`},
		{"scalar", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			ing := New(store, log.NewNop())

			_, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(tt.payload), false)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Ingest() error = %v, want ErrMalformedPayload", err)
			}
			if len(store.inserted) != 0 {
				t.Errorf("inserted %d chunks from malformed payload", len(store.inserted))
			}
		})
	}
}

func TestIngestStampsScopeOverPayload(t *testing.T) {
	store := &mockStore{}
	ing := New(store, log.NewNop())

	// The payload claims a different scope; the request parameters win.
	payload := `{"grade": "9", "subject": "history", "term": "2", "chunks": "text"}`
	if _, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(payload), false); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	got := store.inserted[0]
	if got.Grade != "3" || got.Subject != "math" || got.Term != "1" {
		t.Errorf("stamped scope = %s/%s/%s, want 3/math/1", got.Grade, got.Subject, got.Term)
	}
}

func TestIngestReplaceDeletesScopeFirst(t *testing.T) {
	store := &mockStore{deleted: 7}
	ing := New(store, log.NewNop())

	payload := `[{"chunks": "new material"}]`
	if _, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(payload), true); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if store.deleteCalls != 1 {
		t.Errorf("DeleteScope calls = %d, want 1", store.deleteCalls)
	}
}

func TestIngestWithoutReplaceKeepsScope(t *testing.T) {
	store := &mockStore{}
	ing := New(store, log.NewNop())

	if _, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(`[{"chunks": "x"}]`), false); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if store.deleteCalls != 0 {
		t.Errorf("DeleteScope calls = %d, want 0", store.deleteCalls)
	}
}

func TestIngestEmptyArrayIsNoOp(t *testing.T) {
	store := &mockStore{}
	ing := New(store, log.NewNop())

	// Even with replace set, an empty payload must not clear the scope.
	got, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(`[]`), true)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if got != 0 {
		t.Errorf("Ingest() = %d, want 0", got)
	}
	if store.deleteCalls != 0 {
		t.Errorf("DeleteScope calls = %d, want 0 for empty payload", store.deleteCalls)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d chunks from empty payload", len(store.inserted))
	}
}

func TestIngestDeleteFailureAborts(t *testing.T) {
	store := &mockStore{deleteErr: errors.New("db down")}
	ing := New(store, log.NewNop())

	if _, err := ing.Ingest(context.Background(), "3", "math", "1", []byte(`[{"chunks": "x"}]`), true); err == nil {
		t.Error("Ingest() expected error when scope deletion fails")
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d chunks after failed deletion", len(store.inserted))
	}
}
