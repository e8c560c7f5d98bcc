package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"GreyhoundTips/internal/domain"
	"GreyhoundTips/internal/ports"
)

const (
	predictionsFile = "daily_greyhound_predictions.json"
	statusFile      = "scheduler_status.json"
	statsFile       = "learning_stats.json"

	fallbackDataDir = "./data"
)

// FileStore persists the bot's state as JSON flat files. Reads never fail
// hard: a missing or corrupt file yields the default shape so a bad disk
// can degrade the service but not stop it.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var _ ports.Store = (*FileStore)(nil)

func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	log := logger.With("component", "storage")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("cannot create data directory, using fallback", "dir", dir, "error", err)
		dir = fallbackDataDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("fallback data directory unavailable, persistence degraded", "error", err)
		}
	}

	return &FileStore{dir: dir, logger: log}
}

// LoadPredictions returns the stored record when it belongs to today,
// otherwise a fresh record for today. Stale days never leak forward.
func (s *FileStore) LoadPredictions(today string) domain.PredictionRecord {
	var record domain.PredictionRecord
	if !s.read(predictionsFile, &record) || record.Date != today {
		return domain.PredictionRecord{Date: today}
	}
	return record
}

func (s *FileStore) SavePredictions(record domain.PredictionRecord) error {
	return s.write(predictionsFile, record)
}

func (s *FileStore) LoadStatus() domain.SchedulerStatus {
	var status domain.SchedulerStatus
	s.read(statusFile, &status)
	return status
}

func (s *FileStore) SaveStatus(status domain.SchedulerStatus) error {
	return s.write(statusFile, status)
}

func (s *FileStore) LoadStats() domain.LearningStats {
	var stats domain.LearningStats
	s.read(statsFile, &stats)
	return stats
}

func (s *FileStore) SaveStats(stats domain.LearningStats) error {
	return s.write(statsFile, stats)
}

func (s *FileStore) read(name string, v any) bool {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading state file failed", "file", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warn("state file corrupt, starting fresh", "file", name, "error", err)
		return false
	}
	return true
}

func (s *FileStore) write(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), raw, 0o644)
}
