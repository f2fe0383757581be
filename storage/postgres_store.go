package storage

import (
	"database/sql"
	"errors"
	"time"
)

// PostgresStore keeps keys in the kv_store table, partitioned by namespace
// so several clients can share one database.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

// NewPostgresStore 创建 PostgreSQL 存储. The table is created by database.Migrate.
func NewPostgresStore(db *sql.DB, namespace string) *PostgresStore {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresStore{db: db, namespace: namespace}
}

func (s *PostgresStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM kv_store WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(key, value string) error {
	query := `
		INSERT INTO kv_store (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.Exec(query, s.namespace, key, value, time.Now())
	return err
}

func (s *PostgresStore) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_store WHERE namespace = $1 AND key = $2`, s.namespace, key)
	return err
}

func (s *PostgresStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM kv_store WHERE namespace = $1`, s.namespace)
	return err
}

func (s *PostgresStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv_store WHERE namespace = $1 ORDER BY key`, s.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
