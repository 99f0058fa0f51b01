// Package store provides the backends diagnostic bundles are persisted to.
package store

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrNameMustBeSet  = errors.New("name must be set")
)

// ObjectInfo describes a stored bundle.
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// MemoryStore keeps bundles in memory. It is safe for concurrent use.
type MemoryStore struct {
	lock    sync.RWMutex
	objects map[string][]byte
	infos   map[string]ObjectInfo
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		infos:   make(map[string]ObjectInfo),
	}
}

// Put stores body under name, replacing any previous bundle with the same name.
func (s *MemoryStore) Put(ctx context.Context, name string, body io.Reader, size int64) (string, error) {
	if name == "" {
		return "", ErrNameMustBeSet
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", name)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", errors.Errorf("%s: read %d bytes, expected %d", name, len(data), size)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.objects[name] = data
	s.infos[name] = ObjectInfo{
		Name:         name,
		Size:         int64(len(data)),
		LastModified: time.Now(),
	}

	return "mem://" + name, nil
}

// Get returns the bundle stored under name.
func (s *MemoryStore) Get(name string) (io.Reader, ObjectInfo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, ObjectInfo{}, errors.Wrap(ErrObjectNotFound, name)
	}

	return bytes.NewReader(data), s.infos[name], nil
}

// List returns the stored bundles sorted by name.
func (s *MemoryStore) List() []ObjectInfo {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]ObjectInfo, 0, len(s.infos))
	for _, info := range s.infos {
		res = append(res, info)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})

	return res
}

// Delete removes the bundle stored under name.
func (s *MemoryStore) Delete(name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.objects[name]; !ok {
		return errors.Wrap(ErrObjectNotFound, name)
	}
	delete(s.objects, name)
	delete(s.infos, name)

	return nil
}
