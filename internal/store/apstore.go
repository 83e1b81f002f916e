package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SeenRecord tracks when and how often an access point was roamed onto.
type SeenRecord struct {
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Count     int       `json:"count"`
}

// apDocument is the persisted JSON layout.
type apDocument struct {
	Names            map[string]string     `json:"names"`
	Seen             map[string]SeenRecord `json:"seen"`
	LastCustomTarget string                `json:"last_custom_target"`
}

// APStore persists access point display names, roam sightings, and the last
// custom probe target as one small JSON document. Every mutation rewrites
// the file atomically; a corrupt file is set aside and replaced rather than
// failing startup.
type APStore struct {
	mu   sync.RWMutex
	path string
	log  *slog.Logger
	doc  apDocument
}

// Open loads the store at path, creating the directory as needed.
func Open(path string, log *slog.Logger) (*APStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	s := &APStore{path: path, log: log}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// DisplayName returns the stored name for bssid, empty when none is set.
func (s *APStore) DisplayName(bssid string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Names[bssid]
}

// SetDisplayName stores a user-assigned name for bssid; an empty name
// removes it.
func (s *APStore) SetDisplayName(bssid, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		delete(s.doc.Names, bssid)
	} else {
		s.doc.Names[bssid] = name
	}
	return s.persist()
}

// RecordSeen updates the sighting record for bssid and persists it.
// Persistence failures are logged, not surfaced; a lost sighting must never
// disturb the probe path.
func (s *APStore) RecordSeen(bssid string) {
	if bssid == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec, ok := s.doc.Seen[bssid]
	if !ok {
		rec.FirstSeen = now
	}
	rec.LastSeen = now
	rec.Count++
	s.doc.Seen[bssid] = rec

	if err := s.persist(); err != nil {
		s.log.Warn("persist sighting failed", "bssid", bssid, "error", err)
	}
}

// LastCustomTarget returns the persisted custom target, empty when the
// gateway is the target.
func (s *APStore) LastCustomTarget() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.LastCustomTarget
}

// SetLastCustomTarget persists the active custom target; empty records a
// switch back to the gateway.
func (s *APStore) SetLastCustomTarget(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.LastCustomTarget == host {
		return
	}
	s.doc.LastCustomTarget = host
	if err := s.persist(); err != nil {
		s.log.Warn("persist target failed", "error", err)
	}
}

// Names returns a copy of the bssid→name table.
func (s *APStore) Names() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(map[string]string, len(s.doc.Names))
	for k, v := range s.doc.Names {
		copied[k] = v
	}
	return copied
}

// SeenRecords returns a copy of the sighting table.
func (s *APStore) SeenRecords() map[string]SeenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(map[string]SeenRecord, len(s.doc.Seen))
	for k, v := range s.doc.Seen {
		copied[k] = v
	}
	return copied
}

func (s *APStore) load() error {
	s.doc = apDocument{
		Names: map[string]string{},
		Seen:  map[string]SeenRecord{},
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var doc apDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		backup := s.path + ".corrupt"
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return fmt.Errorf("set aside corrupt store: %w", renameErr)
		}
		s.log.Warn("store file corrupt, starting fresh", "backup", backup, "error", err)
		return nil
	}

	if doc.Names == nil {
		doc.Names = map[string]string{}
	}
	if doc.Seen == nil {
		doc.Seen = map[string]SeenRecord{}
	}
	s.doc = doc
	return nil
}

func (s *APStore) persist() error {
	bytes, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
