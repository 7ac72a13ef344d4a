// Package mock serves a stand-in judge endpoint for local runs and
// tests. It implements the surface the harness touches: the read-only
// pages the smoke battery probes and the POST /judge scoring endpoint.
package mock

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"sync/atomic"
	"time"
)

// Config shapes the mock's behavior. The zero value gives an instant,
// always-200 judge.
type Config struct {
	Latency    time.Duration // added to every judge request
	Spike      time.Duration // added every SpikeEvery-th judge request
	SpikeEvery uint64
	FailEvery  uint64 // every FailEvery-th judge request returns 500
}

type server struct {
	cfg   Config
	calls uint64
}

type judgeRequest struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// NewHandler builds the mock judge service.
func NewHandler(cfg Config) http.Handler {
	s := &server{cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/docs", s.docs)
	mux.HandleFunc("/openapi.json", s.openapi)
	mux.HandleFunc("/judge", s.judge)
	return mux
}

func (s *server) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "savant-rrf-mock",
		"status":  "ok",
		"version": "0.2.0",
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *server) docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!DOCTYPE html><html><head><title>savant-rrf-mock</title></head><body><h1>savant-rrf-mock</h1><p>POST /judge with {\"prompt\", \"answer\"}.</p></body></html>"))
}

func (s *server) openapi(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"openapi": "3.1.0",
		"info":    map[string]interface{}{"title": "savant-rrf-mock", "version": "0.2.0"},
		"paths": map[string]interface{}{
			"/judge": map[string]interface{}{"post": map[string]interface{}{"summary": "Judge"}},
		},
	})
}

func (s *server) judge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	n := atomic.AddUint64(&s.calls, 1)

	if s.cfg.Latency > 0 {
		time.Sleep(s.cfg.Latency)
	}
	if s.cfg.SpikeEvery > 0 && n%s.cfg.SpikeEvery == 0 && s.cfg.Spike > 0 {
		time.Sleep(s.cfg.Spike)
	}
	if s.cfg.FailEvery > 0 && n%s.cfg.FailEvery == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"detail": "synthetic failure"})
		return
	}

	start := time.Now()
	var req judgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": "malformed body"})
		return
	}
	if req.Prompt == "" || req.Answer == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": "prompt and answer must not be empty"})
		return
	}
	writeJSON(w, http.StatusOK, judgement(req.Prompt, req.Answer, start))
}

// judgement fabricates a plausible scores document. The cosine is
// derived from a hash of the pair, so repeated calls agree and distinct
// pairs spread over [0,1].
func judgement(prompt, answer string, start time.Time) map[string]interface{} {
	h := fnv.New64a()
	_, _ = h.Write([]byte(prompt))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(answer))
	cos := float64(h.Sum64()%1000) / 999.0

	margin := cos - 0.5
	ent := charEntropy(prompt + answer)
	pGood := sigmoid(2.0 * margin)

	return map[string]interface{}{
		"scores": map[string]float64{
			"p_good": pGood,
			"SRRF":   pGood,
			"CRRF":   1.0 - math.Abs(0.5-cos),
			"E_phi":  0.25 + 0.5*cos,
			"cosine": cos,
			"phi":    0.6321205588,
		},
		"features": map[string]float64{
			"semantic_margin":      margin,
			"cosine_prompt_answer": cos,
			"token_entropy":        ent,
			"coherence_ratio":      (math.Abs(cos) + 1e-9) / (1.0 + ent),
			"S_RRF":                pGood,
			"C_RRF":                1.0 - math.Abs(0.5-cos),
			"Phi1_geometric":       sigmoid(1.5 * cos),
		},
		"meta": map[string]interface{}{
			"latency_s": time.Since(start).Seconds(),
			"embedder":  "savant-rrf-mock",
		},
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func charEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	ent := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		ent -= p * math.Log(p+1e-12)
	}
	return ent
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
