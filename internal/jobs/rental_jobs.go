package jobs

import (
	"context"
	"time"

	"shuttering-manager/internal/logger"
	"shuttering-manager/internal/repository"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	rentalRepo repository.RentalRepository
}

func NewJobRunner(rentalRepo repository.RentalRepository) *JobRunner {
	return &JobRunner{rentalRepo: rentalRepo}
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()
	logger.Debug("Job started", "job", jobName)
	jobFunc()
	logger.Debug("Job finished", "job", jobName)
}

// ReportOverdueRentals logs every rental that is past its expected return
// date with stock still out. Delivery of reminders to customers is handled
// outside this service; the log line is the hand-off point.
func (jr *JobRunner) ReportOverdueRentals() {
	jr.runWithRecovery("ReportOverdueRentals", func() {
		ctx := context.Background()
		now := time.Now()

		overdue, err := jr.rentalRepo.ListOverdue(ctx, now)
		if err != nil {
			logger.Error("Failed to list overdue rentals", "error", err)
			return
		}

		for _, rt := range overdue {
			var outstanding int32
			for i := range rt.Items {
				outstanding += rt.Items[i].Remaining()
			}
			logger.Warn("Rental overdue",
				"rental_id", rt.ID,
				"customer", rt.CustomerName,
				"expected_return_date", rt.ExpectedReturnDate.Format("2006-01-02"),
				"days_overdue", int(now.Sub(*rt.ExpectedReturnDate).Hours()/24),
				"units_outstanding", outstanding,
				"due_cents", rt.DueAmountCents)
		}
		logger.Info("Overdue rental scan complete", "count", len(overdue))
	})
}
