package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lernia/lernia/internal/backfill"
	"github.com/lernia/lernia/internal/curriculum"
	"github.com/lernia/lernia/internal/log"
)

type mockBackfiller struct {
	result backfill.Result
	err    error
}

func (m *mockBackfiller) Run(_ context.Context) (backfill.Result, error) {
	return m.result, m.err
}

type mockCorpus struct {
	scopes      []curriculum.ScopeSummary
	structErr   error
	indexErr    error
	lastReplace bool
	indexCalls  int
}

func (m *mockCorpus) Structure(_ context.Context) ([]curriculum.ScopeSummary, error) {
	return m.scopes, m.structErr
}

func (m *mockCorpus) EnsureIndex(_ context.Context, replace bool) error {
	m.indexCalls++
	m.lastReplace = replace
	return m.indexErr
}

func TestHandleBackfill(t *testing.T) {
	h := NewAdminHandler(&mockBackfiller{result: backfill.Result{Updated: 12, Remaining: 3}}, &mockCorpus{}, log.NewNop())

	w := httptest.NewRecorder()
	h.handleBackfill(w, httptest.NewRequest(http.MethodPost, "/api/backfill", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Success   bool `json:"success"`
		Updated   int  `json:"updated"`
		Remaining int  `json:"remaining"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Updated != 12 || resp.Remaining != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleBackfillFailure(t *testing.T) {
	h := NewAdminHandler(&mockBackfiller{err: errors.New("db down")}, &mockCorpus{}, log.NewNop())

	w := httptest.NewRecorder()
	h.handleBackfill(w, httptest.NewRequest(http.MethodPost, "/api/backfill", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHandleStructure(t *testing.T) {
	h := NewAdminHandler(&mockBackfiller{}, &mockCorpus{scopes: []curriculum.ScopeSummary{
		{Grade: "3", Subject: "math", Term: "1", Total: 40, Pending: 2},
	}}, log.NewNop())

	w := httptest.NewRecorder()
	h.handleStructure(w, httptest.NewRequest(http.MethodGet, "/api/structure", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Success bool                      `json:"success"`
		Scopes  []curriculum.ScopeSummary `json:"scopes"`
		Count   int                       `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Count != 1 || len(resp.Scopes) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Scopes[0].Total != 40 || resp.Scopes[0].Pending != 2 {
		t.Errorf("scope = %+v", resp.Scopes[0])
	}
}

func TestHandleStructureEmptyCorpus(t *testing.T) {
	h := NewAdminHandler(&mockBackfiller{}, &mockCorpus{}, log.NewNop())

	w := httptest.NewRecorder()
	h.handleStructure(w, httptest.NewRequest(http.MethodGet, "/api/structure", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	// nil scopes serialize as an empty array, not null.
	if strings.Contains(w.Body.String(), `"scopes":null`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleEnsureIndex(t *testing.T) {
	tests := []struct {
		name        string
		form        string
		wantStatus  int
		wantReplace bool
		wantCalls   int
	}{
		{"default ensures without replace", "", http.StatusOK, false, 1},
		{"replace rebuilds", "replace=true", http.StatusOK, true, 1},
		{"bad replace flag", "replace=maybe", http.StatusBadRequest, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := &mockCorpus{}
			h := NewAdminHandler(&mockBackfiller{}, corpus, log.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/structure", strings.NewReader(tt.form))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			h.handleEnsureIndex(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if corpus.indexCalls != tt.wantCalls {
				t.Errorf("EnsureIndex calls = %d, want %d", corpus.indexCalls, tt.wantCalls)
			}
			if corpus.lastReplace != tt.wantReplace {
				t.Errorf("replace = %v, want %v", corpus.lastReplace, tt.wantReplace)
			}
		})
	}
}

func TestHandleEnsureIndexFailure(t *testing.T) {
	h := NewAdminHandler(&mockBackfiller{}, &mockCorpus{indexErr: errors.New("db down")}, log.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/structure", nil)
	w := httptest.NewRecorder()
	h.handleEnsureIndex(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
