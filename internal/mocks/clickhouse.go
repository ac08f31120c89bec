package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

// MockClickHouseClient keeps message action events in memory for local development
type MockClickHouseClient struct {
	mu      sync.RWMutex
	actions []models.MessageAction
}

// NewMockClickHouseClient creates a mock ClickHouse client
func NewMockClickHouseClient() *MockClickHouseClient {
	logger.Info("Using MOCK ClickHouse client for local development")
	return &MockClickHouseClient{}
}

// RecordMessageAction appends the event
func (m *MockClickHouseClient) RecordMessageAction(_ context.Context, action models.MessageAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

// Recorded returns every event recorded so far, in order
func (m *MockClickHouseClient) Recorded() []models.MessageAction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.MessageAction, len(m.actions))
	copy(out, m.actions)
	return out
}

// ReactionCounts mirrors the ClickHouse aggregation: adds minus removes, live entries only
func (m *MockClickHouseClient) ReactionCounts(_ context.Context, channel string) ([]models.ReactionCount, error) {
	type key struct{ typ, value string }
	live := map[key]int64{}

	m.mu.RLock()
	for _, a := range m.actions {
		if a.Channel != channel {
			continue
		}
		k := key{a.Data.Type, a.Data.Value}
		switch a.Event {
		case models.ActionAdded:
			live[k]++
		case models.ActionRemoved:
			live[k]--
		}
	}
	m.mu.RUnlock()

	counts := []models.ReactionCount{}
	for k, n := range live {
		if n > 0 {
			counts = append(counts, models.ReactionCount{Type: k.typ, Value: k.value, Count: n})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Type != counts[j].Type {
			return counts[i].Type < counts[j].Type
		}
		return counts[i].Value < counts[j].Value
	})
	return counts, nil
}

// Ping always succeeds
func (m *MockClickHouseClient) Ping(context.Context) error {
	return nil
}

// Close is a no-op for mock client
func (m *MockClickHouseClient) Close() error {
	return nil
}
