package api

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/samcharles93/natread/pkg/nat"
)

// Upload is an assembled file held by the server.
type Upload struct {
	ID          string
	Name        string
	Created     time.Time
	File        *nat.File
	Diagnostics []nat.Diagnostic
}

// FileStore owns uploaded files until they are deleted.
type FileStore struct {
	mu    sync.Mutex
	files map[string]*Upload
}

func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]*Upload)}
}

func (s *FileStore) Put(u *Upload) *Upload {
	u.ID = newUploadID()
	s.mu.Lock()
	s.files[u.ID] = u
	s.mu.Unlock()
	return u
}

func (s *FileStore) Get(id string) (*Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.files[id]
	return u, ok
}

// Delete removes the upload and releases its file.
func (s *FileStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	u, ok := s.files[id]
	delete(s.files, id)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, u.File.Close()
}

// List returns uploads oldest first.
func (s *FileStore) List() []*Upload {
	s.mu.Lock()
	out := make([]*Upload, 0, len(s.files))
	for _, u := range s.files {
		out = append(out, u)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b *Upload) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Close releases every held file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	files := s.files
	s.files = make(map[string]*Upload)
	s.mu.Unlock()
	var err error
	for _, u := range files {
		err = multierr.Append(err, u.File.Close())
	}
	return err
}

func newUploadID() string {
	return "nat_" + uuid.NewString()
}
