package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Status values recorded for a processed document.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Direction values recorded for a processed document.
const (
	DirectionLocal  = "local"
	DirectionRemote = "remote"
)

// FileRecord represents a processing history record.
type FileRecord struct {
	ID           int64
	FileName     string
	Direction    string
	InvoiceCount int
	TotalAmount  string
	AckFile      string
	Status       string
	ErrorMessage string
	ProcessedAt  time.Time
}

// History manages processing history operations.
type History struct {
	conn *Connection
}

// NewHistory creates a new History instance.
func NewHistory(conn *Connection) *History {
	return &History{conn: conn}
}

// RecordFile records one processed document.
// If the record already exists (same file name), it updates it. The
// last_processed metadata key advances in the same transaction.
func (h *History) RecordFile(record FileRecord) error {
	return h.conn.Transaction(func(tx *sql.Tx) error {
		query := `
			INSERT INTO processing_history (file_name, direction, invoice_count, total_amount, ack_file, status, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(file_name) DO UPDATE SET
				direction = excluded.direction,
				invoice_count = excluded.invoice_count,
				total_amount = excluded.total_amount,
				ack_file = excluded.ack_file,
				status = excluded.status,
				error_message = excluded.error_message,
				processed_at = CURRENT_TIMESTAMP
		`

		if _, err := tx.Exec(query,
			record.FileName,
			record.Direction,
			record.InvoiceCount,
			record.TotalAmount,
			record.AckFile,
			record.Status,
			record.ErrorMessage,
		); err != nil {
			return fmt.Errorf("failed to record file: %w", err)
		}

		meta := `
			INSERT INTO processing_metadata (key, value, updated_at)
			VALUES ('last_processed', ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`

		if _, err := tx.Exec(meta, record.FileName); err != nil {
			return fmt.Errorf("failed to update metadata: %w", err)
		}

		return nil
	})
}

// IsProcessed checks if a document has already been processed successfully.
func (h *History) IsProcessed(fileName string) (bool, error) {
	query := `
		SELECT COUNT(*) as count FROM processing_history
		WHERE file_name = ? AND status = ?
	`

	var count int
	err := h.conn.QueryRow(query, fileName, StatusProcessed).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if processed: %w", err)
	}

	return count > 0, nil
}

// ListRecent retrieves the most recent history records, newest first.
func (h *History) ListRecent(limit int) ([]FileRecord, error) {
	query := `
		SELECT id, file_name, direction, invoice_count, total_amount, ack_file, status, error_message, processed_at
		FROM processing_history
		ORDER BY processed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := h.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent records: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var record FileRecord

		if err := rows.Scan(
			&record.ID,
			&record.FileName,
			&record.Direction,
			&record.InvoiceCount,
			&record.TotalAmount,
			&record.AckFile,
			&record.Status,
			&record.ErrorMessage,
			&record.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		records = append(records, record)
	}

	return records, nil
}

// Stats represents processing statistics.
type Stats struct {
	TotalProcessed int
	TotalFailed    int
	TotalInvoices  int
	LastProcessed  sql.NullString
}

// GetStats retrieves processing statistics.
func (h *History) GetStats() (*Stats, error) {
	var stats Stats

	err := h.conn.QueryRow(`SELECT COUNT(*) FROM processing_history WHERE status = ?`, StatusProcessed).Scan(&stats.TotalProcessed)
	if err != nil {
		return nil, fmt.Errorf("failed to get processed count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT COUNT(*) FROM processing_history WHERE status = ?`, StatusFailed).Scan(&stats.TotalFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT COALESCE(SUM(invoice_count), 0) FROM processing_history WHERE status = ?`, StatusProcessed).Scan(&stats.TotalInvoices)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice count: %w", err)
	}

	err = h.conn.QueryRow(`SELECT MAX(processed_at) FROM processing_history`).Scan(&stats.LastProcessed)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last processed time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (h *History) GetMetadata(key string) (string, error) {
	query := `SELECT value FROM processing_metadata WHERE key = ?`

	var value string
	err := h.conn.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *History) SetMetadata(key, value string) error {
	query := `
		INSERT INTO processing_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := h.conn.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
