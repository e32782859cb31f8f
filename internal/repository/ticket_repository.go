package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-triage/internal/domain"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// TicketFilter captures list parameters. Nil fields and a blank search do not filter.
type TicketFilter struct {
	Category *domain.TicketCategory
	Priority *domain.TicketPriority
	Status   *domain.TicketStatus
	// Search matches case-insensitively against title or description.
	Search string
}

// TicketAggregates holds the raw grouped counts behind the statistics endpoint.
type TicketAggregates struct {
	Total      int64
	Open       int64
	ByPriority map[domain.TicketPriority]int64
	ByCategory map[domain.TicketCategory]int64
	ActiveDays int64
}

// TicketRepository encapsulates ticket persistence. It is the only writer of tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Aggregate(ctx context.Context, loc *time.Location) (TicketAggregates, error)
	Ping(ctx context.Context) error
}

const ticketColumns = `id, title, description, category, priority, status, created_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the PostgreSQL repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedAt,
	)
	return mapPgError(err)
}

// Update writes only the columns present in patch in a single statement.
func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	sets, args := patchAssignments(patch)
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns)

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter, "LOWER")
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, seq ASC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Aggregate(ctx context.Context, loc *time.Location) (TicketAggregates, error) {
	agg := TicketAggregates{
		ByPriority: map[domain.TicketPriority]int64{},
		ByCategory: map[domain.TicketCategory]int64{},
	}
	if loc == nil {
		loc = time.UTC
	}

	const totals = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'open'),
               COUNT(DISTINCT (created_at AT TIME ZONE $1)::date)
        FROM tickets`
	if err := r.pool.QueryRow(ctx, totals, loc.String()).Scan(&agg.Total, &agg.Open, &agg.ActiveDays); err != nil {
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
	return agg, nil
}

// groupCount runs GROUP BY over one of the fixed enum columns.
func (r *ticketRepository) groupCount(ctx context.Context, column string, add func(string, int64)) error {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM tickets GROUP BY %s`, column, column))
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

func (r *ticketRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("postgres not configured")
	}
	return r.pool.Ping(ctx)
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// filterClauses builds the WHERE clauses shared by both SQL dialects. fold
// names the SQL lowercasing function; the same function is applied to the
// columns and the search term so both sides fold identically.
func filterClauses(filter TicketFilter, fold string) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		pattern := fmt.Sprintf("%s($%d)", fold, len(args))
		clauses = append(clauses, fmt.Sprintf(`(%s(title) LIKE %s ESCAPE '\' OR %s(description) LIKE %s ESCAPE '\')`,
			fold, pattern, fold, pattern))
	}
	return clauses, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func patchAssignments(patch domain.TicketPatch) ([]string, []any) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Category != nil {
		add("category", string(*patch.Category))
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	return sets, args
}

const pgCheckViolation = "23514"

// mapPgError turns CHECK constraint violations into validation errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return constraintError(pgErr.ConstraintName)
	}
	return err
}

func constraintError(constraint string) error {
	field := strings.TrimPrefix(constraint, "valid_")
	if field == "" {
		field = "non_field_errors"
	}
	return apperrors.NewValidationError("invalid payload", map[string]any{
		field: "Rejected by storage constraint " + constraint + ".",
	})
}
