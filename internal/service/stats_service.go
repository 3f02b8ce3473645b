package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/repository"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

const statsCacheKey = "ticketdesk:admin:stats"

// UserStats counts accounts per role.
type UserStats struct {
	Total         int `json:"total"`
	Admins        int `json:"admins"`
	SupportAgents int `json:"support_agents"`
	RegularUsers  int `json:"regular_users"`
}

// TicketStats counts tickets per status.
type TicketStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// DashboardStats aggregates the admin dashboard counters.
type DashboardStats struct {
	Users   UserStats   `json:"users"`
	Tickets TicketStats `json:"tickets"`
}

// StatsService computes admin dashboard counters, caching them in Redis for
// a short TTL. Without a Redis client it degrades to computing on every call.
type StatsService struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(users repository.UserRepository, tickets repository.TicketRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{
		users:    users,
		tickets:  tickets,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// DashboardStats returns the counters, served from cache when fresh.
func (s *StatsService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, statsCacheKey).Result()
		if err == nil {
			var cached DashboardStats
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// Invalidate drops the cached counters; called after ticket or user writes.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StatsService) compute(ctx context.Context) (*DashboardStats, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &DashboardStats{}
	stats.Users.Total = len(users)
	for _, u := range users {
		switch u.Role {
		case domain.RoleAdmin:
			stats.Users.Admins++
		case domain.RoleSupportAgent:
			stats.Users.SupportAgents++
		default:
			stats.Users.RegularUsers++
		}
	}
	stats.Tickets.Total = len(tickets)
	for _, t := range tickets {
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.Tickets.Open++
		case domain.TicketStatusInProgress:
			stats.Tickets.InProgress++
		case domain.TicketStatusResolved:
			stats.Tickets.Resolved++
		case domain.TicketStatusClosed:
			stats.Tickets.Closed++
		}
	}
	return stats, nil
}
