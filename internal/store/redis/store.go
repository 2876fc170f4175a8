package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bifrost/internal/domain"
)

// DefaultDefinitionTTL bounds how stale a mirrored definition may get.
// Entries not refreshed by a reload within this window disappear on their
// own, so the mirror never resurrects long-deleted services.
const DefaultDefinitionTTL = 48 * time.Hour

// Store mirrors service definitions into redis. The YAML record file is the
// source of truth; the mirror only warms replicas whose file is unreadable
// at boot.
type Store struct {
	client *redis.Client
}

// NewStore creates a new redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveDefinition stores one service definition
func (s *Store) SaveDefinition(ctx context.Context, def domain.ServiceDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	if err := s.client.Set(ctx, DefinitionKey(def.Name), data, DefaultDefinitionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save definition: %w", err)
	}
	if err := s.client.SAdd(ctx, AllDefinitionsKey(), def.Name).Err(); err != nil {
		return fmt.Errorf("failed to add definition to set: %w", err)
	}
	return nil
}

// GetDefinition retrieves one service definition by name
func (s *Store) GetDefinition(ctx context.Context, name string) (domain.ServiceDefinition, error) {
	data, err := s.client.Get(ctx, DefinitionKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ServiceDefinition{}, fmt.Errorf("definition not found: %s", name)
		}
		return domain.ServiceDefinition{}, fmt.Errorf("failed to get definition: %w", err)
	}

	var def domain.ServiceDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return domain.ServiceDefinition{}, fmt.Errorf("failed to unmarshal definition: %w", err)
	}
	return def, nil
}

// GetAllDefinitions retrieves every mirrored definition. Names whose value
// has expired are skipped.
func (s *Store) GetAllDefinitions(ctx context.Context) ([]domain.ServiceDefinition, error) {
	names, err := s.client.SMembers(ctx, AllDefinitionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get definition names: %w", err)
	}

	defs := make([]domain.ServiceDefinition, 0, len(names))
	for _, name := range names {
		def, err := s.GetDefinition(ctx, name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// DeleteDefinition removes one definition from the mirror
func (s *Store) DeleteDefinition(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, DefinitionKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete definition: %w", err)
	}
	if err := s.client.SRem(ctx, AllDefinitionsKey(), name).Err(); err != nil {
		return fmt.Errorf("failed to remove definition from set: %w", err)
	}
	return nil
}

// SaveDefinitionsMany replaces the mirrored set with defs in one pipeline.
// The name set is rewritten so removed services drop out immediately
// instead of waiting for value TTLs.
func (s *Store) SaveDefinitionsMany(ctx context.Context, defs []domain.ServiceDefinition) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, AllDefinitionsKey())

	for _, def := range defs {
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("failed to marshal definition %s: %w", def.Name, err)
		}
		pipe.Set(ctx, DefinitionKey(def.Name), data, DefaultDefinitionTTL)
		pipe.SAdd(ctx, AllDefinitionsKey(), def.Name)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save definitions: %w", err)
	}
	return nil
}
