package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_organisations",
		SQL: `CREATE TABLE IF NOT EXISTS organisations (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name             TEXT        NOT NULL,
  document_next_id INTEGER     NOT NULL DEFAULT 1 CHECK (document_next_id >= 1),
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id              UUID           PRIMARY KEY,
  organisation_id UUID           NOT NULL REFERENCES organisations (id),
  type            TEXT           NOT NULL,
  status          TEXT           NOT NULL,
  document_id     INTEGER        NOT NULL,
  date            DATE,
  sender_name     TEXT,
  recipient_name  TEXT,
  number          TEXT,
  amount          NUMERIC(16,2)  NOT NULL DEFAULT 0,
  currency        TEXT,
  description     TEXT,
  note            TEXT,
  external_id     TEXT,
  file_hash       TEXT,
  file_ref        TEXT,
  later_at        TIMESTAMPTZ,
  created_at      TIMESTAMPTZ    NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ    NOT NULL DEFAULT now(),
  deleted_at      TIMESTAMPTZ
);`,
	},
	{
		// The sequential number is unique per organisation for its lifetime,
		// soft-deleted rows included (numbers are never reused).
		Name: "create_unique_documents_sequence",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_org_document_id ON documents (organisation_id, document_id);`,
	},
	{
		// Dedup backstop for pulled records: one live row per external record.
		Name: "create_unique_documents_external_id",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_org_type_external_id
  ON documents (organisation_id, type, external_id) WHERE external_id IS NOT NULL;`,
	},
	{
		// Dedup backstop for uploads: identical bytes map to one invoice.
		Name: "create_unique_documents_file_hash",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_org_file_hash
  ON documents (organisation_id, file_hash) WHERE file_hash IS NOT NULL AND type = 'invoice';`,
	},
	{
		Name: "create_index_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_org_status ON documents (organisation_id, status) WHERE deleted_at IS NULL;`,
	},
	{
		Name: "create_table_document_links",
		SQL: `CREATE TABLE IF NOT EXISTS document_links (
  id                 UUID        PRIMARY KEY,
  organisation_id    UUID        NOT NULL REFERENCES organisations (id),
  type               TEXT        NOT NULL,
  document_id        UUID        NOT NULL REFERENCES documents (id),
  linked_document_id UUID        NOT NULL REFERENCES documents (id),
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (document_id <> linked_document_id)
);`,
	},
	{
		Name: "create_index_document_links_pair",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_links_pair ON document_links (organisation_id, document_id, linked_document_id);`,
	},
	{
		Name: "create_table_cache",
		SQL: `CREATE TABLE IF NOT EXISTS cache (
  key        TEXT        PRIMARY KEY,
  value      JSONB,
  expires_at TIMESTAMPTZ
);`,
	},
}

// EnsureMigrated checks if the 'organisations' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.organisations') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
