// Package payments simulates a payment gateway. The three-state verify
// result (pending/completed/failed) is the contract; the randomized
// outcome behind it stands in for a real gateway callback and must be
// replaced before any production use.
package payments

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"agentmarket/server/internal/errs"
	"agentmarket/server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Verification outcome weights, in percent.
const (
	completedWeight = 80
	pendingWeight   = 10
)

// Verifier resolves a payment identifier to one of the three payment
// statuses.
type Verifier interface {
	VerifyPayment(ctx context.Context, paymentID string) (string, error)
}

// Simulator is a stand-in payment gateway backed by the payment log.
type Simulator struct {
	db  *gorm.DB
	log *logrus.Entry

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a new payment simulator
func NewSimulator(db *gorm.DB) *Simulator {
	return &Simulator{
		db:  db,
		log: logrus.WithField("component", "payments"),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GeneratePaymentID returns a region-prefixed numeric identifier suitable
// for presenting in a QR code. Uniqueness is probabilistic, not
// guaranteed; the id is not a security token.
func (s *Simulator) GeneratePaymentID() string {
	s.mu.Lock()
	n := s.rng.Intn(10000)
	s.mu.Unlock()
	return fmt.Sprintf("KZ%d%04d", time.Now().UnixMilli(), n)
}

// RecordPayment appends an entry to the payment log. Entries are never
// mutated; the log serves audit and analytics only.
func (s *Simulator) RecordPayment(ctx context.Context, paymentID, taskID string, amount float64, status string) error {
	entry := &models.PaymentLog{
		PaymentID: paymentID,
		TaskID:    taskID,
		Amount:    amount,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return errs.Dependency("failed to record payment", err)
	}
	return nil
}

// VerifyPayment resolves a payment to pending, completed or failed. The
// outcome is randomly drawn (~80/10/10).
func (s *Simulator) VerifyPayment(ctx context.Context, paymentID string) (string, error) {
	s.mu.Lock()
	roll := s.rng.Intn(100)
	s.mu.Unlock()

	status := models.PaymentStatusFailed
	switch {
	case roll < completedWeight:
		status = models.PaymentStatusCompleted
	case roll < completedWeight+pendingWeight:
		status = models.PaymentStatusPending
	}

	s.log.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"status":     status,
	}).Info("payment verified")

	return status, nil
}

// UpdateTaskPaymentStatus sets a task's payment_status field. It never
// touches the task status column; lifecycle transitions stay with the
// processor.
func (s *Simulator) UpdateTaskPaymentStatus(ctx context.Context, taskID, status string) error {
	switch status {
	case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusFailed:
	default:
		return errs.Validation("unknown payment status %q", status)
	}

	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return errs.Dependency("failed to update payment status", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("task not found: %s", taskID)
	}
	return nil
}
