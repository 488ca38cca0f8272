package orders

import (
	"context"
	"time"
)

// DashboardStats is the daily summary the panel's dashboard consumes.
type DashboardStats struct {
	TotalRevenue         float64 `json:"totalRevenue"`
	TotalOrdersConcluded int     `json:"totalOrdersConcluded"`
	AverageTicket        float64 `json:"averageTicket"`
	TodaysOrdersCount    int     `json:"todaysOrdersCount"`
}

// Aggregate computes the dashboard figures over one day's orders: every
// order counts toward TodaysOrdersCount, completed ones contribute their
// total to revenue. AverageTicket is 0 when nothing concluded.
func Aggregate(docs []Document) DashboardStats {
	stats := DashboardStats{TodaysOrdersCount: len(docs)}
	for _, d := range docs {
		if d.Data.Status != StatusCompleted {
			continue
		}
		stats.TotalRevenue += d.Data.Totals.Total
		stats.TotalOrdersConcluded++
	}
	if stats.TotalOrdersConcluded > 0 {
		stats.AverageTicket = stats.TotalRevenue / float64(stats.TotalOrdersConcluded)
	}
	return stats
}

// DashboardStats fetches today's orders, with "today" starting at midnight
// in the given location, and aggregates them.
func (s *Store) DashboardStats(ctx context.Context, loc *time.Location) (DashboardStats, error) {
	now := s.nowFunc().In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	docs, err := s.ListSince(ctx, startOfDay)
	if err != nil {
		return DashboardStats{}, err
	}
	return Aggregate(docs), nil
}
