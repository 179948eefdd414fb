package model

import (
	"math"
	"time"
)

// DailySummary aggregates one user's tasks for one calendar date.
type DailySummary struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         uint   `gorm:"not null;uniqueIndex:idx_user_summary_date"`
	SummaryDate    string `gorm:"not null;uniqueIndex:idx_user_summary_date"`
	TotalTasks     int
	CompletedTasks int
	MissedTasks    int
	CompletionRate float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusCounts is the per-status tally for one user and date.
type StatusCounts struct {
	Pending   int
	Completed int
	Missed    int
}

func (c StatusCounts) Total() int {
	return c.Pending + c.Completed + c.Missed
}

// NewDailySummary computes totals and a completion rate rounded to two
// decimals; the rate is 0 when there are no tasks.
func NewDailySummary(userID uint, date string, c StatusCounts) DailySummary {
	total := c.Total()
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(c.Completed)/float64(total)*100*100) / 100
	}
	return DailySummary{
		UserID:         userID,
		SummaryDate:    date,
		TotalTasks:     total,
		CompletedTasks: c.Completed,
		MissedTasks:    c.Missed,
		CompletionRate: rate,
	}
}
