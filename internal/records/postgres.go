package records

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS doctors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT UNIQUE,
			specialty TEXT,
			location TEXT,
			profile_image_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS vitals (
			id TEXT PRIMARY KEY,
			"UID" TEXT NOT NULL,
			age DOUBLE PRECISION,
			systolic_bp DOUBLE PRECISION NOT NULL,
			diastolic_bp DOUBLE PRECISION NOT NULL,
			blood_glucose DOUBLE PRECISION NOT NULL,
			body_temp DOUBLE PRECISION NOT NULL,
			heart_rate DOUBLE PRECISION NOT NULL,
			prediction INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vitals_uid_created ON vitals ("UID", created_at);`,
		`CREATE TABLE IF NOT EXISTS ctg (
			id TEXT PRIMARY KEY,
			"UID" TEXT NOT NULL,
			baseline_value DOUBLE PRECISION NOT NULL,
			accelerations DOUBLE PRECISION NOT NULL,
			fetal_movement DOUBLE PRECISION NOT NULL,
			uterine_contractions DOUBLE PRECISION NOT NULL,
			light_decelerations DOUBLE PRECISION NOT NULL,
			severe_decelerations DOUBLE PRECISION NOT NULL,
			prolonged_decelerations DOUBLE PRECISION NOT NULL,
			abnormal_short_term_variability DOUBLE PRECISION NOT NULL,
			mean_value_of_short_term_variability DOUBLE PRECISION NOT NULL,
			percentage_of_time_with_abnormal_long_term_variability DOUBLE PRECISION NOT NULL,
			mean_value_of_long_term_variability DOUBLE PRECISION NOT NULL,
			histogram_width DOUBLE PRECISION NOT NULL,
			histogram_min DOUBLE PRECISION NOT NULL,
			histogram_max DOUBLE PRECISION NOT NULL,
			histogram_number_of_peaks DOUBLE PRECISION NOT NULL,
			prediction INTEGER NOT NULL,
			status TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ctg_uid_created ON ctg ("UID", created_at);`,
		`CREATE TABLE IF NOT EXISTS diet_plans (
			id TEXT PRIMARY KEY,
			"UID" TEXT NOT NULL,
			trimester TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			health_conditions TEXT,
			dietary_preference TEXT,
			diet_plan TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := checkColumns(table, row.columns()...); err != nil {
		return nil, err
	}
	sql, args := insertSQL(table, withDefaults(row))
	rows, err := s.pool.Query(ctx, sql+" RETURNING *", args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", table)
	}
	return out[0], nil
}

func (s *PostgresStore) Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error) {
	if err := checkColumns(table, append(row.columns(), conflictColumn)...); err != nil {
		return nil, err
	}
	if v, ok := row[conflictColumn]; !ok || v == nil {
		return s.Insert(ctx, table, row)
	}

	stored := withDefaults(row)
	sql, args := insertSQL(table, stored)

	var updates []string
	for _, col := range sortedColumns(stored) {
		if col == conflictColumn || col == ColumnID || col == ColumnCreatedAt {
			continue
		}
		ident := pgx.Identifier{col}.Sanitize()
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", ident, ident))
	}
	conflict := pgx.Identifier{conflictColumn}.Sanitize()
	if len(updates) == 0 {
		sql += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s", conflict, conflict, conflict)
	} else {
		sql += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", conflict, strings.Join(updates, ", "))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sql+" RETURNING *", args...)
	if err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", table, err)
	}
	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("upsert into %s returned no row", table)
	}
	return out[0], nil
}

func (s *PostgresStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	names := []string{q.OrderBy}
	for k := range q.Eq {
		names = append(names, k)
	}
	if err := checkColumns(table, names...); err != nil {
		return nil, err
	}

	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT * FROM %s", pgx.Identifier{table}.Sanitize())
	if len(q.Eq) > 0 {
		keys := make([]string, 0, len(q.Eq))
		for k := range q.Eq {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		conds := make([]string, 0, len(keys))
		for _, k := range keys {
			args = append(args, q.Eq[k])
			conds = append(conds, fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), len(args)))
		}
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", pgx.Identifier{q.OrderBy}.Sanitize(), dir)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func insertSQL(table string, row Row) (string, []any) {
	cols := sortedColumns(row)
	idents := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		idents[i] = pgx.Identifier{col}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(idents, ", "),
		strings.Join(placeholders, ", "),
	), args
}

func sortedColumns(row Row) []string {
	cols := row.columns()
	sort.Strings(cols)
	return cols
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			v := values[i]
			if t, ok := v.(time.Time); ok {
				v = t.UTC()
			}
			row[f.Name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
