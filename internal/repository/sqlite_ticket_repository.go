package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/persistence"
)

// sqliteTimeLayout is fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tickets (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    description TEXT NOT NULL,
    category    TEXT NOT NULL,
    priority    TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'open',
    created_at  TEXT NOT NULL,
    CONSTRAINT valid_title CHECK (trim(title) <> '' AND length(title) <= 200),
    CONSTRAINT valid_description CHECK (trim(description) <> ''),
    CONSTRAINT valid_category CHECK (category IN ('billing', 'technical', 'account', 'general')),
    CONSTRAINT valid_priority CHECK (priority IN ('low', 'medium', 'high', 'critical')),
    CONSTRAINT valid_status CHECK (status IN ('open', 'in_progress', 'resolved', 'closed'))
);

CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at DESC, seq);

CREATE TRIGGER IF NOT EXISTS tickets_immutable_columns
BEFORE UPDATE OF id, created_at ON tickets
WHEN NEW.id <> OLD.id OR NEW.created_at <> OLD.created_at
BEGIN
    SELECT RAISE(ABORT, 'id and created_at are immutable');
END;
`

type sqliteTicketRepository struct {
	db *sql.DB
}

// NewSQLiteTicketRepository creates the schema if needed and returns a
// repository backed by db.
func NewSQLiteTicketRepository(ctx context.Context, db *sql.DB) (TicketRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("ticket store: migrate: %w", err)
	}
	return &sqliteTicketRepository{db: db}, nil
}

// sqlitePlaceholders rewrites $n into SQLite's numbered ?n parameters.
func sqlitePlaceholders(query string) string {
	return strings.ReplaceAll(query, "$", "?")
}

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status, created_at)
        VALUES (?1,?2,?3,?4,?5,?6,?7)`
	_, err := r.db.ExecContext(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Category),
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	return mapSQLiteError(err)
}

func (r *sqliteTicketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	sets, args := patchAssignments(patch)
	args = append(args, id)
	query := sqlitePlaceholders(fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns))

	ticket, err := scanSQLiteTicket(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return ticket, nil
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=?1`
	return scanSQLiteTicket(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter, persistence.SQLiteFoldFunc)
	query := sqlitePlaceholders(fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, seq ASC`,
		ticketColumns, strings.Join(clauses, " AND ")))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// Aggregate groups in SQL and buckets calendar days in Go, since SQLite has
// no time zone database.
func (r *sqliteTicketRepository) Aggregate(ctx context.Context, loc *time.Location) (TicketAggregates, error) {
	agg := TicketAggregates{
		ByPriority: map[domain.TicketPriority]int64{},
		ByCategory: map[domain.TicketCategory]int64{},
	}
	if loc == nil {
		loc = time.UTC
	}

	const totals = `SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0) FROM tickets`
	if err := r.db.QueryRowContext(ctx, totals).Scan(&agg.Total, &agg.Open); err != nil {
		return agg, err
	}

	if err := r.groupCount(ctx, "priority", func(value string, count int64) {
		agg.ByPriority[domain.TicketPriority(value)] = count
	}); err != nil {
		return agg, err
	}
	if err := r.groupCount(ctx, "category", func(value string, count int64) {
		agg.ByCategory[domain.TicketCategory(value)] = count
	}); err != nil {
		return agg, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT created_at FROM tickets`)
	if err != nil {
		return agg, err
	}
	defer rows.Close()
	days := map[string]struct{}{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return agg, err
		}
		createdAt, err := time.Parse(sqliteTimeLayout, raw)
		if err != nil {
			return agg, fmt.Errorf("parse created_at %q: %w", raw, err)
		}
		days[createdAt.In(loc).Format(time.DateOnly)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return agg, err
	}
	agg.ActiveDays = int64(len(days))
	return agg, nil
}

func (r *sqliteTicketRepository) groupCount(ctx context.Context, column string, add func(string, int64)) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM tickets GROUP BY %s`, column, column))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			value string
			count int64
		)
		if err := rows.Scan(&value, &count); err != nil {
			return err
		}
		add(value, count)
	}
	return rows.Err()
}

func (r *sqliteTicketRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanSQLiteTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket    domain.Ticket
		createdAt string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&createdAt,
	); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	ticket.CreatedAt = parsed
	return &ticket, nil
}

const sqliteCheckPrefix = "CHECK constraint failed: "

func mapSQLiteError(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	msg := err.Error()
	if idx := strings.Index(msg, sqliteCheckPrefix); idx >= 0 {
		name := msg[idx+len(sqliteCheckPrefix):]
		if end := strings.IndexAny(name, " )"); end >= 0 {
			name = name[:end]
		}
		return constraintError(name)
	}
	return err
}
