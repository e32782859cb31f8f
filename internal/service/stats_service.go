package service

import (
	"context"
	"math"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/repository"
)

// StatsService derives collection-wide statistics from repository aggregates.
type StatsService struct {
	tickets  repository.TicketRepository
	location *time.Location
}

// NewStatsService counts calendar days in loc; nil means UTC.
func NewStatsService(tickets repository.TicketRepository, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{tickets: tickets, location: loc}
}

// Compute returns totals, breakdowns in enum order and the average number of
// tickets per day that saw at least one ticket created.
func (s *StatsService) Compute(ctx context.Context) (*domain.TicketStats, error) {
	agg, err := s.tickets.Aggregate(ctx, s.location)
	if err != nil {
		return nil, err
	}
	return buildStats(agg), nil
}

func buildStats(agg repository.TicketAggregates) *domain.TicketStats {
	stats := &domain.TicketStats{
		TotalTickets: agg.Total,
		OpenTickets:  agg.Open,
		ByPriority:   []domain.PriorityCount{},
		ByCategory:   []domain.CategoryCount{},
	}
	if agg.ActiveDays > 0 {
		stats.AvgPerDay = round2(float64(agg.Total) / float64(agg.ActiveDays))
	}
	for _, priority := range domain.TicketPriorities {
		if count := agg.ByPriority[priority]; count > 0 {
			stats.ByPriority = append(stats.ByPriority, domain.PriorityCount{Priority: priority, Count: count})
		}
	}
	for _, category := range domain.TicketCategories {
		if count := agg.ByCategory[category]; count > 0 {
			stats.ByCategory = append(stats.ByCategory, domain.CategoryCount{Category: category, Count: count})
		}
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
