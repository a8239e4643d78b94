package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryInsertAssignsDefaults(t *testing.T) {
	s := NewInMemoryStore()
	row, err := s.Insert(context.Background(), TableVitals, Row{ColumnUID: "user-1", "prediction": 2})
	require.NoError(t, err)

	assert.NotEmpty(t, row[ColumnID])
	assert.IsType(t, time.Time{}, row[ColumnCreatedAt])
	assert.Len(t, s.Rows(TableVitals), 1)
}

func TestInMemoryRejectsUnknownColumns(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Insert(context.Background(), TableVitals, Row{"blood_type": "O"})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = s.Insert(context.Background(), "patients", Row{})
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.Empty(t, s.Rows(TableVitals))
}

func TestInMemoryUpsertByPhone(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first, err := s.Upsert(ctx, TableDoctors, Row{"name": "Dr. A", "phone": "555"}, "phone")
	require.NoError(t, err)
	second, err := s.Upsert(ctx, TableDoctors, Row{"name": "Dr. A B", "phone": "555", "location": "Pune"}, "phone")
	require.NoError(t, err)

	assert.Equal(t, first[ColumnID], second[ColumnID])
	assert.Equal(t, "Dr. A B", second["name"])
	assert.Equal(t, "Pune", second["location"])
	assert.Len(t, s.Rows(TableDoctors), 1)

	_, err = s.Upsert(ctx, TableDoctors, Row{"name": "No Phone"}, "phone")
	require.NoError(t, err)
	assert.Len(t, s.Rows(TableDoctors), 2)
}

func TestInMemorySelectFiltersAndOrders(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, uid := range []string{"u1", "u2", "u1", "u1"} {
		_, err := s.Insert(ctx, TableDietPlans, Row{
			ColumnUID:       uid,
			"diet_plan":     uid + "-plan",
			ColumnCreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	rows, err := s.Select(ctx, TableDietPlans, Query{
		Eq:      map[string]any{ColumnUID: "u1"},
		OrderBy: ColumnCreatedAt,
		Desc:    true,
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, base.Add(3*time.Hour), rows[0][ColumnCreatedAt])
	assert.Equal(t, base.Add(2*time.Hour), rows[1][ColumnCreatedAt])

	rows[0]["diet_plan"] = "mutated"
	again, err := s.Select(ctx, TableDietPlans, Query{Eq: map[string]any{ColumnUID: "u1"}})
	require.NoError(t, err)
	assert.Equal(t, "u1-plan", again[2]["diet_plan"])
}

func TestInsertSQLQuotesIdentifiers(t *testing.T) {
	sql, args := insertSQL(TableVitals, Row{ColumnUID: "u1", "prediction": 1})
	assert.Equal(t, `INSERT INTO "vitals" ("UID", "prediction") VALUES ($1, $2)`, sql)
	assert.Equal(t, []any{"u1", 1}, args)
}

func TestNewStoreWithoutDatabaseURLIsInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}
