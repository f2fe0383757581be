package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The client is the only writer; a small pool is enough.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	return db, nil
}

// Migrations creates the key/value table used as durable local storage.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS kv_store (
		namespace VARCHAR(50) NOT NULL,
		key VARCHAR(255) NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kv_store_updated_at ON kv_store(updated_at)`,
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	for i, migration := range Migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
