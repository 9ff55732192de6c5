package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// Logger is the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event *Event) error
}

// DBLogger writes audit events to the audit_logs table
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-backed audit logger
func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

// Log inserts event
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO audit_logs (
			timestamp, event_type, status, user_id, request_id, ip_address,
			method, route, resource_id, status_code, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var userID interface{}
	if event.UserID != nil {
		userID = *event.UserID
	}

	_, err := l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		userID,
		nullString(event.RequestID),
		nullString(event.IPAddress),
		event.Method,
		event.Route,
		nullString(event.ResourceID),
		event.StatusCode,
		event.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
