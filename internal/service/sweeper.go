package service

import (
	"context"
	"log"
	"time"

	"shulepay/internal/repository"
)

// Sweeper periodically resolves payment requests that never received a
// callback within the prompt validity window. A late callback after expiry
// hits the duplicate short-circuit in ProcessCallback and is ignored.
type Sweeper struct {
	requestRepo *repository.PaymentRequestRepository
	timeout     time.Duration
	interval    time.Duration
}

func NewSweeper(requestRepo *repository.PaymentRequestRepository, timeout, interval time.Duration) *Sweeper {
	return &Sweeper{requestRepo: requestRepo, timeout: timeout, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n, err := s.requestRepo.ExpireOlderThan(time.Now().Add(-s.timeout))
			if err != nil {
				log.Printf("[SWEEPER] expire pass failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[SWEEPER] expired %d stale payment requests", n)
			}
		}
	}
}
