//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// Run with: POSTGRES_DSN=postgres://... go test -tags integration ./internal/repository/
func newPostgresRepo(t *testing.T) TicketRepository {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	logger := zap.NewNop()

	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4}, logger)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pg.PoolHandle(), "../../migrations", logger))
	_, err = pg.Pool.Exec(ctx, `TRUNCATE tickets RESTART IDENTITY`)
	require.NoError(t, err)

	return NewTicketRepository(pg.PoolHandle())
}

func TestPostgres_CreateGetAndPrecision(t *testing.T) {
	repo := newPostgresRepo(t)
	createdAt := base.Add(123456 * time.Microsecond)
	created := insert(t, repo, "Invoice wrong", "Charged twice", domain.TicketCategoryBilling, domain.TicketPriorityHigh, createdAt)

	got, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domain.TicketCategoryBilling, got.Category)
	assert.True(t, createdAt.Equal(got.CreatedAt), "got %s", got.CreatedAt)

	_, err = repo.GetByID(context.Background(), uuid.NewString())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPostgres_ListOrderingAndFilters(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	insert(t, repo, "Internet down", "no connectivity", domain.TicketCategoryTechnical, domain.TicketPriorityHigh, base)
	insert(t, repo, "tie-first", "The INTERNET bill", domain.TicketCategoryBilling, domain.TicketPriorityMedium, base.Add(time.Hour))
	insert(t, repo, "tie-second", "100% off", domain.TicketCategoryBilling, domain.TicketPriorityLow, base.Add(time.Hour))
	insert(t, repo, "ÉCHEC DE PAIEMENT", "carte", domain.TicketCategoryBilling, domain.TicketPriorityLow, base.Add(2*time.Hour))

	all, err := repo.List(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉCHEC DE PAIEMENT", "tie-first", "tie-second", "Internet down"}, titles(all))

	billingInternet, err := repo.List(ctx, TicketFilter{Category: ptr(domain.TicketCategoryBilling), Search: "internet"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tie-first"}, titles(billingInternet))

	literal, err := repo.List(ctx, TicketFilter{Search: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tie-second"}, titles(literal))

	exact, err := repo.List(ctx, TicketFilter{Search: "ÉCHEC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉCHEC DE PAIEMENT"}, titles(exact))

	none, err := repo.List(ctx, TicketFilter{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPostgres_UpdateAndConstraints(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	created := insert(t, repo, "Printer", "Offline", domain.TicketCategoryTechnical, domain.TicketPriorityLow, base)

	updated, err := repo.Update(ctx, created.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Equal(t, "Printer", updated.Title)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	_, err = repo.Update(ctx, created.ID, domain.TicketPatch{Status: ptr(domain.TicketStatus("archived"))})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "status")

	_, err = repo.Update(ctx, uuid.NewString(), domain.TicketPatch{Title: ptr("x")})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPostgres_Aggregate(t *testing.T) {
	repo := newPostgresRepo(t)
	insert(t, repo, "a", "d", domain.TicketCategoryBilling, domain.TicketPriorityHigh, base)
	insert(t, repo, "b", "d", domain.TicketCategoryBilling, domain.TicketPriorityHigh, base.Add(3*time.Hour))
	late := insert(t, repo, "c", "d", domain.TicketCategoryAccount, domain.TicketPriorityLow, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))
	_, err := repo.Update(context.Background(), late.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)

	agg, err := repo.Aggregate(context.Background(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Total)
	assert.Equal(t, int64(2), agg.Open)
	assert.Equal(t, int64(1), agg.ActiveDays)
	assert.Equal(t, map[domain.TicketPriority]int64{domain.TicketPriorityHigh: 2, domain.TicketPriorityLow: 1}, agg.ByPriority)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	agg, err = repo.Aggregate(context.Background(), tokyo)
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.ActiveDays)
}
