package storage

import "ProductScanner/internal/config"

// schema returns the DDL statements for the given dialect. Every statement
// is idempotent so Init can run on every start.
func schema(dialect string) []string {
	idType, textType, timeType := "VARCHAR(36)", "TEXT", "TIMESTAMP"
	indexIfMissing := "IF NOT EXISTS "
	switch dialect {
	case config.DriverPostgres:
		idType = "UUID"
	case config.DriverMySQL:
		timeType = "DATETIME(6)"
		// MySQL has no CREATE INDEX IF NOT EXISTS; indexes are declared inline.
		indexIfMissing = ""
	}

	sessions := `CREATE TABLE IF NOT EXISTS sessions (
	id ` + idType + ` PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	source_url ` + textType + `,
	hostname VARCHAR(255),
	favicon ` + textType + `,
	last_duration VARCHAR(32),
	column_names ` + textType + `,
	created_at ` + timeType + ` NOT NULL,
	updated_at ` + timeType + ` NOT NULL`

	items := `CREATE TABLE IF NOT EXISTS session_items (
	id ` + idType + ` PRIMARY KEY,
	session_id ` + idType + ` NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	sort_index INTEGER NOT NULL,
	title ` + textType + ` NOT NULL,
	url ` + textType + `,
	description ` + textType + `,
	short_description ` + textType + `,
	long_description ` + textType + `,
	image ` + textType + `,
	price VARCHAR(50),
	currency VARCHAR(10),
	brand VARCHAR(255),
	rating VARCHAR(50),
	review_count VARCHAR(50),
	sku VARCHAR(255),
	ean VARCHAR(255),
	stock VARCHAR(100),
	created_at ` + timeType + ` NOT NULL`

	if dialect == config.DriverMySQL {
		return []string{
			sessions + `,
	INDEX idx_sessions_updated_at (updated_at))`,
			items + `,
	INDEX idx_session_items_session_id (session_id))`,
		}
	}

	return []string{
		sessions + `)`,
		items + `)`,
		`CREATE INDEX ` + indexIfMissing + `idx_session_items_session_id ON session_items(session_id)`,
		`CREATE INDEX ` + indexIfMissing + `idx_sessions_updated_at ON sessions(updated_at DESC)`,
	}
}
