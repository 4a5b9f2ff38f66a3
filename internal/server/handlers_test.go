package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/config"
	"github.com/matome-io/matome/internal/llm"
	"github.com/matome-io/matome/internal/models"
	"github.com/matome-io/matome/internal/store"
)

type fakeScorer struct {
	papers []models.Paper
	err    error
	topics []string
	limit  int
	model  string
}

func (f *fakeScorer) FindRelevant(_ context.Context, topics []string, limit int, model string) ([]models.Paper, error) {
	f.topics = topics
	f.limit = limit
	f.model = model
	return f.papers, f.err
}

type fakeStore struct {
	byID       map[string]models.Paper
	papers     int64
	summarized int64
	countErr   error
}

func (f *fakeStore) FindPendingExtraction(_ context.Context, _ int) ([]models.Paper, error) {
	return nil, nil
}
func (f *fakeStore) FindPendingSummary(_ context.Context, _ int) ([]models.Paper, error) {
	return nil, nil
}
func (f *fakeStore) FindExtracted(_ context.Context, _ int) ([]models.Paper, error)  { return nil, nil }
func (f *fakeStore) FindSummarized(_ context.Context, _ int) ([]models.Paper, error) { return nil, nil }

func (f *fakeStore) FindByPaperIDs(_ context.Context, ids []string) ([]models.Paper, error) {
	var out []models.Paper
	for _, id := range ids {
		if paper, ok := f.byID[id]; ok {
			out = append(out, paper)
		}
	}
	return out, nil
}

func (f *fakeStore) SetExtractedText(_ context.Context, _ string, _ store.ExtractionUpdate) error {
	return nil
}
func (f *fakeStore) SetSummary(_ context.Context, _, _ string) error        { return nil }
func (f *fakeStore) UpsertMetadata(_ context.Context, _ models.Paper) error { return nil }
func (f *fakeStore) CountPapers(_ context.Context) (int64, error)           { return f.papers, f.countErr }
func (f *fakeStore) CountSummarized(_ context.Context) (int64, error)       { return f.summarized, f.countErr }
func (f *fakeStore) Close(_ context.Context) error                          { return nil }

type fakeChecker struct {
	status llm.Status
}

func (f *fakeChecker) CheckStatus(_ context.Context) llm.Status { return f.status }

func newTestServer(scorer *fakeScorer, papers *fakeStore) *Server {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	checker := &fakeChecker{status: llm.Status{State: llm.StatusRunning, Models: []string{"mistral"}}}
	return NewServer(scorer, papers, checker, cfg, zap.NewNop())
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	rel := &models.Relevance{Score: 8, Explanation: "on topic", IsRelevant: true}
	scorer := &fakeScorer{papers: []models.Paper{{PaperID: "p2", Relevance: rel}, {PaperID: "p1", Relevance: rel}}}
	papers := &fakeStore{byID: map[string]models.Paper{
		"p1": {PaperID: "p1", Title: "One", Summary: "s1"},
		"p2": {PaperID: "p2", Title: "Two", Summary: "s2"},
	}}
	s := newTestServer(scorer, papers)

	rec := doRequest(s, http.MethodGet, "/search?keywords=graphs,transformers&limit=5&model=phi3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if len(scorer.topics) != 2 || scorer.topics[0] != "graphs" || scorer.topics[1] != "transformers" {
		t.Errorf("topics = %v", scorer.topics)
	}
	if scorer.limit != 5 || scorer.model != "phi3" {
		t.Errorf("limit = %d, model = %s", scorer.limit, scorer.model)
	}

	var resp struct {
		Papers []models.Paper `json:"papers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Papers) != 2 {
		t.Fatalf("got %d papers", len(resp.Papers))
	}
	// Scorer order (best first) wins over store order.
	if resp.Papers[0].PaperID != "p2" || resp.Papers[1].PaperID != "p1" {
		t.Errorf("order = %s, %s", resp.Papers[0].PaperID, resp.Papers[1].PaperID)
	}
	if resp.Papers[0].Relevance == nil || resp.Papers[0].Relevance.Score != 8 {
		t.Errorf("relevance not attached: %+v", resp.Papers[0].Relevance)
	}
	if resp.Papers[0].Title != "Two" {
		t.Errorf("full record not returned: %+v", resp.Papers[0])
	}
}

func TestHandleSearchMissingKeywords(t *testing.T) {
	s := newTestServer(&fakeScorer{}, &fakeStore{})

	rec := doRequest(s, http.MethodGet, "/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSearchBadLimit(t *testing.T) {
	s := newTestServer(&fakeScorer{}, &fakeStore{})

	rec := doRequest(s, http.MethodGet, "/search?keywords=x&limit=zero")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSearchNoMatches(t *testing.T) {
	s := newTestServer(&fakeScorer{}, &fakeStore{})

	rec := doRequest(s, http.MethodGet, "/search?keywords=x")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Papers []models.Paper `json:"papers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Papers == nil || len(resp.Papers) != 0 {
		t.Errorf("papers = %v, want empty list", resp.Papers)
	}
}

func TestHandleSearchScorerError(t *testing.T) {
	s := newTestServer(&fakeScorer{err: errors.New("mongo down")}, &fakeStore{})

	rec := doRequest(s, http.MethodGet, "/search?keywords=x")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(&fakeScorer{}, &fakeStore{papers: 42, summarized: 17})

	rec := doRequest(s, http.MethodGet, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["papers"].(float64) != 42 || resp["summarized"].(float64) != 17 {
		t.Errorf("counts = %v / %v", resp["papers"], resp["summarized"])
	}
	ollama := resp["ollama"].(map[string]interface{})
	if ollama["status"] != llm.StatusRunning {
		t.Errorf("ollama status = %v", ollama["status"])
	}
}

func TestHandleStatusCountError(t *testing.T) {
	s := newTestServer(&fakeScorer{}, &fakeStore{countErr: errors.New("down")})

	rec := doRequest(s, http.MethodGet, "/api/v1/status")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeScorer{}, &fakeStore{})

	rec := doRequest(s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestParseKeywords(t *testing.T) {
	cases := []struct {
		in   []string
		want int
	}{
		{[]string{"a,b"}, 2},
		{[]string{"a", "b"}, 2},
		{[]string{"a, b ,"}, 2},
		{[]string{""}, 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := parseKeywords(tc.in); len(got) != tc.want {
			t.Errorf("parseKeywords(%v) = %v, want %d keywords", tc.in, got, tc.want)
		}
	}
}
