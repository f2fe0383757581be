package storage

import (
	"encoding/json"

	"livescore-client/logger"
)

// Service wraps a durable local store and a process-scoped session store.
// Failures are logged and swallowed: callers see a missing value, never an error.
type Service struct {
	local   Store
	session Store
}

// NewService 创建存储服务. A nil session store gets an in-memory one.
func NewService(local, session Store) *Service {
	if session == nil {
		session = NewMemoryStore()
	}
	return &Service{local: local, session: session}
}

// ============ local ============

func (s *Service) SetItem(key, value string) {
	if err := s.local.Set(key, value); err != nil {
		logger.Errorf("[Storage] Error saving %s: %v", key, err)
	}
}

func (s *Service) GetItem(key string) (string, bool) {
	v, ok, err := s.local.Get(key)
	if err != nil {
		logger.Errorf("[Storage] Error reading %s: %v", key, err)
		return "", false
	}
	return v, ok
}

func (s *Service) RemoveItem(key string) {
	if err := s.local.Remove(key); err != nil {
		logger.Errorf("[Storage] Error removing %s: %v", key, err)
	}
}

func (s *Service) Clear() {
	if err := s.local.Clear(); err != nil {
		logger.Errorf("[Storage] Error clearing store: %v", err)
	}
}

// ============ session ============

func (s *Service) SetSessionItem(key, value string) {
	if err := s.session.Set(key, value); err != nil {
		logger.Errorf("[Storage] Error saving session %s: %v", key, err)
	}
}

func (s *Service) GetSessionItem(key string) (string, bool) {
	v, ok, err := s.session.Get(key)
	if err != nil {
		logger.Errorf("[Storage] Error reading session %s: %v", key, err)
		return "", false
	}
	return v, ok
}

func (s *Service) RemoveSessionItem(key string) {
	if err := s.session.Remove(key); err != nil {
		logger.Errorf("[Storage] Error removing session %s: %v", key, err)
	}
}

func (s *Service) ClearSession() {
	if err := s.session.Clear(); err != nil {
		logger.Errorf("[Storage] Error clearing session: %v", err)
	}
}

// ============ utilities ============

// SetObject stores v as JSON.
func (s *Service) SetObject(key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("[Storage] Error encoding %s: %v", key, err)
		return
	}
	s.SetItem(key, string(data))
}

// GetObject decodes the JSON value at key into v. It returns false when the
// key is absent or the value is malformed; malformed values are logged.
func (s *Service) GetObject(key string, v interface{}) bool {
	raw, ok := s.GetItem(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger.Errorf("[Storage] Error parsing %s: %v", key, err)
		return false
	}
	return true
}

// Keys lists the local keys.
func (s *Service) Keys() []string {
	keys, err := s.local.Keys()
	if err != nil {
		logger.Errorf("[Storage] Error listing keys: %v", err)
		return nil
	}
	return keys
}

// Size returns the summed length of local keys and values.
func (s *Service) Size() int {
	total := 0
	for _, k := range s.Keys() {
		if v, ok := s.GetItem(k); ok {
			total += len(k) + len(v)
		}
	}
	return total
}

// Available probes the local store with a write, read and delete.
func (s *Service) Available() bool {
	const probe = "__storage_test__"
	if err := s.local.Set(probe, probe); err != nil {
		return false
	}
	defer s.local.Remove(probe)
	v, ok, err := s.local.Get(probe)
	return err == nil && ok && v == probe
}
