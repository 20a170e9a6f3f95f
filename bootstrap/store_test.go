package bootstrap

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"gitlab.com/NebulousLabs/errors"
)

type (
	// memoryStore is an in-memory Store which counts the writes it receives.
	// Databases listed in unreachable fail with ErrConnection.
	memoryStore struct {
		collections map[string]map[string][]Index
		users       map[string]map[string][]Role
		unreachable map[string]bool

		calls  int
		writes int
		mu     sync.Mutex
	}
)

// newMemoryStore creates an empty memoryStore.
func newMemoryStore() *memoryStore {
	return &memoryStore{
		collections: make(map[string]map[string][]Index),
		users:       make(map[string]map[string][]Role),
		unreachable: make(map[string]bool),
	}
}

// newTestLogger returns a logger that discards everything.
func newTestLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// call registers a call and returns an error if database is unreachable.
func (s *memoryStore) call(database string) error {
	s.calls++
	if s.unreachable[database] {
		return errors.Compose(ErrConnection, errors.New("connection refused"))
	}
	return nil
}

func (s *memoryStore) EnsureCollections(_ context.Context, database string, collections []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(database); err != nil {
		return nil, err
	}
	if s.collections[database] == nil {
		s.collections[database] = make(map[string][]Index)
	}
	var created []string
	for _, coll := range collections {
		if _, ok := s.collections[database][coll]; ok {
			continue
		}
		s.collections[database][coll] = []Index{{Name: "_id_", Fields: []IndexField{{Path: "_id", Direction: DirectionAsc}}}}
		created = append(created, coll)
		s.writes++
	}
	return created, nil
}

func (s *memoryStore) UserRoles(_ context.Context, database, username string) ([]Role, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(database); err != nil {
		return nil, false, err
	}
	roles, ok := s.users[database][username]
	return append([]Role(nil), roles...), ok, nil
}

func (s *memoryStore) CreateUser(_ context.Context, database, username, _ string, roles []Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(database); err != nil {
		return err
	}
	if s.users[database] == nil {
		s.users[database] = make(map[string][]Role)
	}
	s.users[database][username] = append([]Role(nil), roles...)
	s.writes++
	return nil
}

func (s *memoryStore) Indexes(_ context.Context, database, collection string) ([]Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(database); err != nil {
		return nil, err
	}
	return append([]Index(nil), s.collections[database][collection]...), nil
}

func (s *memoryStore) CreateIndex(_ context.Context, database, collection string, index Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(database); err != nil {
		return err
	}
	if s.collections[database] == nil {
		s.collections[database] = make(map[string][]Index)
	}
	s.collections[database][collection] = append(s.collections[database][collection], index)
	s.writes++
	return nil
}
