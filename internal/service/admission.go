package service

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (s *Service) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(s.maxWait)
	defer timer.Stop()
	select {
	case s.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-s.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(s.maxWait)
	defer timer2.Stop()
	select {
	case s.genCh <- struct{}{}:
		acquired = true
		return func() { <-s.genCh; <-s.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{}
	}
}
