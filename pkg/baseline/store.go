package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/events"
	"github.com/hardenlab/resilience-go/pkg/log"
	"github.com/hardenlab/resilience-go/pkg/metrics"
)

// Store records immutable performance baselines, one JSON file per record,
// and serves the comparator from an in-memory index.
type Store struct {
	config Config
	bus    *events.Bus

	mu      sync.RWMutex
	records map[string]*Record
	byType  map[string][]*Record
}

// NewStore creates the data directory if needed and loads every valid record
// found there; corrupt files are skipped with a warning.
func NewStore(config Config, bus *events.Bus) (*Store, error) {
	if bus == nil {
		bus = events.NewBus()
	}
	if config.MaxBaselineHistory <= 0 {
		config.MaxBaselineHistory = DefaultConfig().MaxBaselineHistory
	}
	if err := os.MkdirAll(config.DataDirectory, 0o755); err != nil {
		return nil, cerrors.BaselineCRUD{Operation: "initialize", Reason: err.Error()}
	}

	store := &Store{
		config:  config,
		bus:     bus,
		records: make(map[string]*Record),
		byType:  make(map[string][]*Record),
	}
	if err := store.loadAll(); err != nil {
		return nil, err
	}
	return store, nil
}

// Bus exposes the notification bus
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// RecordBaseline captures the system configuration, derives the deterministic
// id, persists the record atomically and updates the index
func (s *Store) RecordBaseline(testType string, testConfig TestConfig, m Metrics, opts RecordOptions) (*Record, error) {
	if testType == "" {
		return nil, cerrors.BaselineCRUD{Operation: "record", Reason: "test type must not be empty"}
	}
	if testConfig.Name == "" {
		return nil, cerrors.BaselineCRUD{Operation: "record", Reason: "test config name must not be empty"}
	}

	system := s.captureSystemConfiguration()
	now := time.Now()
	record := &Record{
		ID:         deriveID(testType, testConfig, system, now),
		TestType:   testType,
		TestConfig: testConfig,
		System:     system,
		Metrics:    m,
		Version:    opts.Version,
		Commit:     opts.Commit,
		Tags:       opts.Tags,
		Notes:      opts.Notes,
		CreatedAt:  now,
	}
	if record.Commit == "" && s.config.EnableGitIntegration {
		record.Commit = os.Getenv("GIT_COMMIT")
	}

	if err := s.persist(record); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.index(record)
	var pruned []string
	if s.config.AutoCleanup {
		pruned = s.pruneLocked(testType)
	}
	s.mu.Unlock()

	for _, id := range pruned {
		s.removeFile(id)
	}

	metrics.BaselinesRecorded.WithLabelValues(testType).Inc()
	log.InfoWithValues("[Baseline]: Recorded performance baseline", logrus.Fields{
		"ID":       record.ID,
		"TestType": testType,
		"TestName": testConfig.Name,
		"Version":  record.Version,
	})
	s.bus.Publish(events.BaselineRecorded, record)
	return record, nil
}

// Get returns one record by id
func (s *Store) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	return record, ok
}

// List returns every record of one test type, oldest first
func (s *Store) List(testType string) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, len(s.byType[testType]))
	copy(out, s.byType[testType])
	return out
}

// Count returns the number of indexed records
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// deriveID hashes the test identity and system fingerprint, then appends the
// capture timestamp so repeated captures of the same setup stay distinct
func deriveID(testType string, testConfig TestConfig, system SystemConfiguration, now time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", testType, testConfig.Name, system.RuntimeVersion, system.Platform, system.CPUCores)
	params := make([]string, 0, len(testConfig.Parameters))
	for k, v := range testConfig.Parameters {
		params = append(params, k+"="+v)
	}
	sort.Strings(params)
	fmt.Fprintf(h, "|%s", strings.Join(params, ","))
	return fmt.Sprintf("%s-%d", hex.EncodeToString(h.Sum(nil))[:12], now.UnixNano())
}

func (s *Store) captureSystemConfiguration() SystemConfiguration {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return SystemConfiguration{
		RuntimeVersion: runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		CPUCores:       runtime.NumCPU(),
		MemoryMB:       int64(memStats.Sys / (1024 * 1024)),
		Environment:    os.Getenv("DEPLOY_ENV"),
	}
}

// persist writes the record with write-then-rename semantics so a crash
// mid-write never leaves a truncated baseline behind
func (s *Store) persist(record *Record) error {
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return cerrors.BaselineCRUD{Operation: "encode", Target: record.ID, Reason: err.Error()}
	}
	final := s.recordPath(record.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return cerrors.BaselineCRUD{Operation: "persist", Target: record.ID, Reason: err.Error()}
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return cerrors.BaselineCRUD{Operation: "persist", Target: record.ID, Reason: err.Error()}
	}
	return nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.config.DataDirectory, id+".json")
}

// index assumes s.mu is held
func (s *Store) index(record *Record) {
	s.records[record.ID] = record
	list := append(s.byType[record.TestType], record)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	s.byType[record.TestType] = list
}

// pruneLocked drops the oldest records beyond the history cap and returns
// their ids; s.mu must be held
func (s *Store) pruneLocked(testType string) []string {
	list := s.byType[testType]
	excess := len(list) - s.config.MaxBaselineHistory
	if excess <= 0 {
		return nil
	}
	pruned := make([]string, 0, excess)
	for _, record := range list[:excess] {
		delete(s.records, record.ID)
		pruned = append(pruned, record.ID)
	}
	s.byType[testType] = list[excess:]
	return pruned
}

func (s *Store) removeFile(id string) {
	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		log.Warnf("[Baseline]: Unable to remove pruned baseline file %v, %v", id, err)
	}
}

// loadAll reads the data directory; one corrupt file never fails startup
func (s *Store) loadAll() error {
	entries, err := os.ReadDir(s.config.DataDirectory)
	if err != nil {
		return cerrors.BaselineCRUD{Operation: "load", Reason: err.Error()}
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.config.DataDirectory, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("[Baseline]: Skipping unreadable baseline file %v, %v", entry.Name(), err)
			continue
		}
		record, err := decodeRecord(raw)
		if err != nil {
			log.Warnf("[Baseline]: Skipping malformed baseline file %v, %v", entry.Name(), err)
			continue
		}
		s.mu.Lock()
		s.index(record)
		s.mu.Unlock()
		loaded++
	}
	if loaded > 0 {
		log.Infof("[Baseline]: Loaded %v baseline records from %v", loaded, s.config.DataDirectory)
	}
	return nil
}
