package slot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	errSlotFileIsDir = errors.New("slot file is dir")
)

type Data struct {
	Values map[string]string `json:"values"`
}

type JSON struct {
	path string
	log  *zap.Logger

	mu   sync.Mutex
	data *Data
}

func NewJSON(path string, log *zap.Logger) *JSON {
	s := &JSON{
		path: path,
		log:  log,
		data: &Data{Values: map[string]string{}},
	}

	err := s.readfile()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// only log, the slot starts empty and the file is rewritten on the
		// next change
		s.log.Warn("failed reading json slot file", zap.Error(err))
	}
	if s.data.Values == nil {
		s.data.Values = map[string]string{}
	}

	return s
}

func (s *JSON) stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writefile()
}

func (s *JSON) readfile() error {
	finfo, err := os.Stat(s.path)
	if err != nil {
		return err
	}

	if finfo.IsDir() {
		return errSlotFileIsDir
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(&s.data)
}

func (s *JSON) writefile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, b, 0o600)
}

func (s *JSON) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data.Values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *JSON) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Values[key] = value
	return s.writefile()
}

func (s *JSON) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data.Values, key)
	return s.writefile()
}
