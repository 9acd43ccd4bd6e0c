package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// DefaultMaxMetricEntries bounds the in-memory metric log.
const DefaultMaxMetricEntries = 100

// csvTimestampLayout matches the export format consumers already parse.
const csvTimestampLayout = "2006-01-02 15:04:05"

// BackendStats aggregates call outcomes for one backend kind. Average
// latency covers successful calls only.
type BackendStats struct {
	Backend      models.BackendKind `json:"backend"`
	Attempts     int                `json:"attempts"`
	Successes    int                `json:"successes"`
	SuccessRate  float64            `json:"success_rate"`
	AvgLatencyMs float64            `json:"avg_latency_ms"`
}

// ErrorCount is one row of the top-errors report.
type ErrorCount struct {
	Kind  models.ErrorKind `json:"kind"`
	Count int              `json:"count"`
}

// Collector records the outcome of every backend call in a bounded
// most-recent-first list and persists the whole list as one snapshot after
// each append. Persistence is best-effort: storage failures are logged and
// never abort the analysis flow.
//
// Appends and snapshot writes are serialized with the same mutex because both
// strategies may complete concurrently when the caller compares them; a
// snapshot written outside the lock could lose the race and durably overwrite
// a newer one.
type Collector struct {
	mu      sync.Mutex
	entries []models.MetricEntry
	max     int
	store   models.KVStore
	key     string
	logger  *zap.Logger
}

func NewCollector(store models.KVStore, key string, maxEntries int, logger *zap.Logger) *Collector {
	if maxEntries < 1 {
		maxEntries = DefaultMaxMetricEntries
	}
	if key == "" {
		key = "ai_call_metrics"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		max:    maxEntries,
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Load restores the persisted snapshot. Missing or corrupt data degrades to
// an empty log.
func (c *Collector) Load(ctx context.Context) {
	raw, found, err := c.store.GetString(ctx, c.key)
	if err != nil {
		c.logger.Warn("failed to load metrics snapshot", zap.Error(err))
		return
	}
	if !found {
		return
	}

	var entries []models.MetricEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn("discarding corrupt metrics snapshot", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entries) > c.max {
		entries = entries[:c.max]
	}
	c.entries = entries
}

// Record appends entry at the head, trims to the bound, and persists.
func (c *Collector) Record(ctx context.Context, entry models.MetricEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append([]models.MetricEntry{entry}, c.entries...)
	if len(c.entries) > c.max {
		c.entries = c.entries[:c.max]
	}
	// Persisting under the lock keeps snapshot writes in append order.
	c.persist(ctx, c.snapshotLocked())
}

func (c *Collector) snapshotLocked() []models.MetricEntry {
	snapshot := make([]models.MetricEntry, len(c.entries))
	copy(snapshot, c.entries)
	return snapshot
}

func (c *Collector) persist(ctx context.Context, snapshot []models.MetricEntry) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("failed to encode metrics snapshot", zap.Error(err))
		return
	}
	if err := c.store.PutString(ctx, c.key, string(raw)); err != nil {
		c.logger.Warn("failed to persist metrics snapshot", zap.Error(err))
	}
}

// Entries returns a copy of the recorded entries, most recent first.
func (c *Collector) Entries() []models.MetricEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Stats aggregates per-backend attempt counts, success rates and mean
// success latency. Zero-safe: a backend with no data reports zeros.
func (c *Collector) Stats() []BackendStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	byBackend := make(map[models.BackendKind]*BackendStats)
	latencySums := make(map[models.BackendKind]int64)

	for _, entry := range c.entries {
		stats, ok := byBackend[entry.Backend]
		if !ok {
			stats = &BackendStats{Backend: entry.Backend}
			byBackend[entry.Backend] = stats
		}
		stats.Attempts++
		if entry.Success {
			stats.Successes++
			latencySums[entry.Backend] += entry.LatencyMs
		}
	}

	result := make([]BackendStats, 0, len(byBackend))
	for kind, stats := range byBackend {
		if stats.Attempts > 0 {
			stats.SuccessRate = float64(stats.Successes) / float64(stats.Attempts)
		}
		if stats.Successes > 0 {
			stats.AvgLatencyMs = float64(latencySums[kind]) / float64(stats.Successes)
		}
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Backend < result[j].Backend })
	return result
}

// TopErrors groups failures by error kind and returns the n most frequent,
// count descending, kind ascending on ties.
func (c *Collector) TopErrors(n int) []ErrorCount {
	if n <= 0 {
		n = 5
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[models.ErrorKind]int)
	for _, entry := range c.entries {
		if entry.Success {
			continue
		}
		kind := entry.ErrorKind
		if kind == "" {
			kind = models.ErrKindUnknown
		}
		counts[kind]++
	}

	ranked := make([]ErrorCount, 0, len(counts))
	for kind, count := range counts {
		ranked = append(ranked, ErrorCount{Kind: kind, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Kind < ranked[j].Kind
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ExportCSV renders all entries as CSV with a fixed header. encoding/csv
// handles quoting, doubling any embedded quotes in message fields.
func (c *Collector) ExportCSV() (string, error) {
	entries := c.Entries()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Timestamp", "Implementation", "StartDate", "EndDate", "DataSize", "Success", "ProcessingTime", "ErrorType", "ErrorMessage"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		row := []string{
			entry.Timestamp.Format(csvTimestampLayout),
			string(entry.Backend),
			entry.StartDate,
			entry.EndDate,
			strconv.Itoa(entry.DataSize()),
			strconv.FormatBool(entry.Success),
			strconv.FormatInt(entry.LatencyMs, 10),
			string(entry.ErrorKind),
			entry.ErrorMessage,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

// Clear resets both the in-memory list and the persisted snapshot.
func (c *Collector) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil {
		c.logger.Warn("failed to clear persisted metrics", zap.Error(err))
	}
}
