package observability

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Stage names observed by request handlers and the chat processor.
const (
	StageAuthVerify    = "auth_verify"
	StageClassify      = "classify"
	StageRecordInsert  = "record_insert"
	StageChatLoad      = "chat_load"
	StageChatModel     = "chat_model"
	StageChatSave      = "chat_save"
	StageChatTurnTotal = "chat_turn_total"
	StageDietModel     = "diet_model"
)

// DefaultStageTargets are the p95 budgets reported next to each stage.
// PERF_STAGE_TARGETS overrides individual entries.
func DefaultStageTargets() map[string]time.Duration {
	return map[string]time.Duration{
		StageAuthVerify:    150 * time.Millisecond,
		StageClassify:      5 * time.Millisecond,
		StageRecordInsert:  100 * time.Millisecond,
		StageChatLoad:      100 * time.Millisecond,
		StageChatSave:      100 * time.Millisecond,
		StageChatModel:     20 * time.Second,
		StageDietModel:     20 * time.Second,
		StageChatTurnTotal: 21 * time.Second,
	}
}

type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  bool    `json:"over_target,omitempty"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// latencyWindow keeps the most recent samples per stage, oldest first.
type latencyWindow struct {
	mu       sync.Mutex
	capacity int
	samples  map[string][]time.Duration
	targets  map[string]time.Duration
	counts   map[string]int
}

func newLatencyWindow(capacity int, targets map[string]time.Duration) *latencyWindow {
	if capacity <= 0 {
		capacity = 256
	}
	if targets == nil {
		targets = DefaultStageTargets()
	}
	return &latencyWindow{
		capacity: capacity,
		samples:  make(map[string][]time.Duration),
		targets:  maps.Clone(targets),
		counts:   make(map[string]int),
	}
}

func (w *latencyWindow) add(stage string, d time.Duration) {
	if stage == "" || d < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s := append(w.samples[stage], d)
	if len(s) > w.capacity {
		s = slices.Delete(s, 0, len(s)-w.capacity)
	}
	w.samples[stage] = s
}

func (w *latencyWindow) count(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	w.counts[name]++
	w.mu.Unlock()
}

func (w *latencyWindow) setTargets(targets map[string]time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for stage, d := range targets {
		w.targets[stage] = d
	}
}

func (w *latencyWindow) snapshot() StageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := StageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.capacity,
		Stages:      make([]StageStats, 0, len(w.samples)),
	}
	for _, stage := range slices.Sorted(maps.Keys(w.samples)) {
		if s := w.samples[stage]; len(s) > 0 {
			snap.Stages = append(snap.Stages, summarize(stage, s, w.targets[stage]))
		}
	}
	for _, name := range slices.Sorted(maps.Keys(w.counts)) {
		snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: w.counts[name]})
	}
	return snap
}

// summarize reports nearest-rank percentiles over samples in arrival order.
func summarize(stage string, samples []time.Duration, target time.Duration) StageStats {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	st := StageStats{
		Stage:   stage,
		Samples: len(sorted),
		LastMS:  millis(samples[len(samples)-1]),
		AvgMS:   millis(total / time.Duration(len(sorted))),
		P50MS:   millis(percentile(sorted, 50)),
		P95MS:   millis(percentile(sorted, 95)),
		P99MS:   millis(percentile(sorted, 99)),
	}
	if target > 0 {
		st.TargetP95MS = millis(target)
		st.OverTarget = st.P95MS > st.TargetP95MS
	}
	return st
}

func percentile(sorted []time.Duration, p int) time.Duration {
	rank := int(math.Ceil(float64(p) / 100 * float64(len(sorted))))
	return sorted[max(rank, 1)-1]
}

func millis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
