package clickhouse

import (
	"context"
	"fmt"

	"github.com/Billy-Davies-2/chat-mock/internal/models"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createMessageActions = `
	CREATE TABLE IF NOT EXISTS message_actions (
		channel           String,
		message_timetoken String,
		action_timetoken  String,
		type              String,
		value             String,
		uuid              String,
		event             LowCardinality(String),
		recorded_at       DateTime64(3) DEFAULT now64(3)
	) ENGINE = MergeTree
	ORDER BY (channel, message_timetoken, action_timetoken)
`

// Client records message action events in ClickHouse
type Client struct {
	conn driver.Conn
}

// NewClient connects, pings and makes sure the message_actions table exists
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createMessageActions); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create message_actions table: %w", err)
	}

	return &Client{conn: conn}, nil
}

// RecordMessageAction stores one added or removed action event
func (c *Client) RecordMessageAction(ctx context.Context, action models.MessageAction) error {
	query := `
		INSERT INTO message_actions
			(channel, message_timetoken, action_timetoken, type, value, uuid, event)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		action.Channel,
		action.Data.MessageTimetoken,
		action.Data.ActionTimetoken,
		action.Data.Type,
		action.Data.Value,
		action.Data.UUID,
		string(action.Event),
	)
	if err != nil {
		return fmt.Errorf("failed to record message action %s: %w", action.Data.ActionTimetoken, err)
	}
	return nil
}

// ReactionCounts returns adds minus removes for every type/value still live on a channel
func (c *Client) ReactionCounts(ctx context.Context, channel string) ([]models.ReactionCount, error) {
	query := `
		SELECT
			type,
			value,
			toInt64(countIf(event = 'added')) - toInt64(countIf(event = 'removed')) AS live
		FROM message_actions
		WHERE channel = ?
		GROUP BY type, value
		HAVING live > 0
		ORDER BY type, value
	`

	rows, err := c.conn.Query(ctx, query, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to query reaction counts: %w", err)
	}
	defer rows.Close()

	counts := []models.ReactionCount{}
	for rows.Next() {
		var rc models.ReactionCount
		if err := rows.Scan(&rc.Type, &rc.Value, &rc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
