// Package service runs a ranking session and exposes it to presentation adapters.
package service

import (
	"github.com/okian/elorank/internal/adapters/repository"
	"github.com/okian/elorank/internal/domain/elo"
	"github.com/okian/elorank/internal/domain/scheduler"
	"github.com/okian/elorank/pkg/logger"
)

// SessionOption applies a configuration option to the Session.
type SessionOption func(*Session)

// WithStore sets the rating store. It must be empty.
func WithStore(store repository.Store) SessionOption {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScheduler sets the pair scheduler.
func WithScheduler(sched *scheduler.Scheduler) SessionOption {
	return func(s *Session) {
		if sched != nil {
			s.sched = sched
		}
	}
}

// WithRater sets the rating update rule.
func WithRater(r elo.Rater) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.rater = r
		}
	}
}

// WithInitialRating sets the rating of freshly bootstrapped items.
func WithInitialRating(rating float64) SessionOption {
	return func(s *Session) {
		s.initialRating = rating
	}
}

// WithSessionLogger sets a custom logger for the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the maximum number of waiting commands.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many vote ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
