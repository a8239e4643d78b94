package records

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps rows per table for local/dev use and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Row
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tables: make(map[string][]Row)}
}

func (s *InMemoryStore) Insert(_ context.Context, table string, row Row) (Row, error) {
	if err := checkColumns(table, row.columns()...); err != nil {
		return nil, err
	}
	stored := withDefaults(row)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], stored)
	return stored.clone(), nil
}

func (s *InMemoryStore) Upsert(_ context.Context, table string, row Row, conflictColumn string) (Row, error) {
	if err := checkColumns(table, append(row.columns(), conflictColumn)...); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, hasKey := row[conflictColumn]
	if hasKey && key != nil {
		for i, existing := range s.tables[table] {
			if existing[conflictColumn] == key {
				merged := existing.clone()
				for k, v := range row {
					if k == ColumnID || k == ColumnCreatedAt {
						continue
					}
					merged[k] = v
				}
				s.tables[table][i] = merged
				return merged.clone(), nil
			}
		}
	}
	stored := withDefaults(row)
	s.tables[table] = append(s.tables[table], stored)
	return stored.clone(), nil
}

func (s *InMemoryStore) Select(_ context.Context, table string, q Query) ([]Row, error) {
	names := []string{q.OrderBy}
	for k := range q.Eq {
		names = append(names, k)
	}
	if err := checkColumns(table, names...); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		if matches(row, q.Eq) {
			out = append(out, row.clone())
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Rows returns a snapshot of every row in table.
func (s *InMemoryStore) Rows(table string) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, row.clone())
	}
	return out
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

func withDefaults(row Row) Row {
	stored := row.clone()
	if v, ok := stored[ColumnID]; !ok || v == nil || v == "" {
		stored[ColumnID] = uuid.NewString()
	}
	if _, ok := stored[ColumnCreatedAt]; !ok {
		stored[ColumnCreatedAt] = time.Now().UTC()
	}
	return stored
}

func matches(row Row, eq map[string]any) bool {
	for k, want := range eq {
		if fmt.Sprint(row[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return cmp.Compare(av, bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
