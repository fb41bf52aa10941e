// Package db provides SQLite database management for processing history and
// metadata.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Processing history table
-- Tracks which EDI documents have been processed and acknowledged
CREATE TABLE IF NOT EXISTS processing_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_name TEXT NOT NULL,                -- original document file name
    direction TEXT NOT NULL,                -- 'local' or 'remote'
    invoice_count INTEGER NOT NULL,         -- invoices parsed from the document
    total_amount TEXT NOT NULL,             -- summed declared totals, decimal string
    ack_file TEXT NOT NULL DEFAULT '',      -- generated 997 file name
    status TEXT NOT NULL,                   -- 'processed' or 'failed'
    error_message TEXT NOT NULL DEFAULT '',
    processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(file_name)
);

CREATE INDEX IF NOT EXISTS idx_processing_history_status
    ON processing_history(status);

CREATE INDEX IF NOT EXISTS idx_processing_history_processed_at
    ON processing_history(processed_at);

-- Processing metadata table
-- Stores key-value metadata about processing runs
CREATE TABLE IF NOT EXISTS processing_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
