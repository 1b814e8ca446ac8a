package branch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/redis/go-redis/v9"
)

// Store provides persistence for branch settings.
type Store struct {
	redis *redis.Client
}

// NewStore creates a branch settings store.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("branch: redis client cannot be nil")
	}
	return &Store{redis: redisClient}
}

func (s *Store) key(companyID, branchID string) string {
	return fmt.Sprintf("branch:settings:%s:%s", companyID, branchID)
}

// Get retrieves branch settings, returning defaults (always open) if none exist.
func (s *Store) Get(ctx context.Context, companyID, branchID string) (*Settings, error) {
	data, err := s.redis.Get(ctx, s.key(companyID, branchID)).Bytes()
	if err == redis.Nil {
		return DefaultSettings(companyID, branchID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("branch: get settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("branch: unmarshal settings: %w", err)
	}
	return &settings, nil
}

// Set saves branch settings.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	if settings == nil || settings.CompanyID == "" || settings.BranchID == "" {
		return fmt.Errorf("branch: settings require companyId and branchId")
	}
	settings.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("branch: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(settings.CompanyID, settings.BranchID), data, 0).Err(); err != nil {
		return fmt.Errorf("branch: set settings: %w", err)
	}
	return nil
}

// Gate answers whether a candidate interval falls inside a branch's operating
// hours. It is the business-hours check in the availability chain.
type Gate struct {
	store *Store
}

// NewGate creates a Gate backed by the settings store.
func NewGate(store *Store) *Gate {
	if store == nil {
		panic("branch: store cannot be nil")
	}
	return &Gate{store: store}
}

// AllowsInterval loads the branch settings and tests the interval against its
// open periods. An unconfigured branch is always open.
func (g *Gate) AllowsInterval(ctx context.Context, companyID, branchID string, iv timeutil.Interval) (bool, error) {
	settings, err := g.store.Get(ctx, companyID, branchID)
	if err != nil {
		return false, err
	}
	return settings.AllowsInterval(iv), nil
}
