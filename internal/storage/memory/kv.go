package memory

import "sync"

// KV — простое in-memory key-value хранилище для локальной разработки и тестов.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV возвращает пустое хранилище.
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Load возвращает payload ключа или nil, если ключа нет.
func (s *KV) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), payload...), nil
}

// Store перезаписывает payload ключа.
func (s *KV) Store(key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), payload...)
	return nil
}
