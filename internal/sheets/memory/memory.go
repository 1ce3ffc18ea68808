package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finanzas/internal/sheets"
)

// Store is an in-process MovementMirror used by tests and local runs
// without spreadsheet credentials.
type Store struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
	refs map[int64]int
	next int
}

var _ sheets.MovementMirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]sheets.Row), refs: make(map[int64]int)}
}

// Upsert stores the row and returns a synthetic row reference. A row keeps
// its reference across updates.
func (s *Store) Upsert(_ context.Context, r sheets.Row) (string, error) {
	if r.ID <= 0 {
		return "", fmt.Errorf("row id must be positive, got %d", r.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.refs[r.ID]
	if !ok {
		s.next++
		ref = s.next
		s.refs[r.ID] = ref
	}
	s.rows[r.ID] = r
	return fmt.Sprintf("mem:%d", ref), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	delete(s.refs, id)
	return nil
}

// Get returns the mirrored row for id.
func (s *Store) Get(id int64) (sheets.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

// Rows returns every mirrored row ordered by id.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
