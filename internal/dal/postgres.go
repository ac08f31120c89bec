package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

// PostgresDAL implements FixtureDAL using PostgreSQL
type PostgresDAL struct {
	db *sql.DB
}

// NewPostgresDAL connects to PostgreSQL and seeds the fixture tables when empty
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// Fixture reads are light; a small pool recycled often survives CloudNativePG failovers
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Retry the first ping; cluster DNS can lag behind pod start
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}

		logger.Warn("Postgres ping failed", "attempt", i+1, "error", lastErr)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fixture_users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		profile_url TEXT NOT NULL DEFAULT '',
		custom JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS fixture_channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		custom JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS fixture_messages (
		channel TEXT NOT NULL,
		timetoken BIGINT NOT NULL,
		uuid TEXT NOT NULL,
		publisher TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL,
		PRIMARY KEY (channel, timetoken)
	);

	CREATE INDEX IF NOT EXISTS idx_fixture_messages_timetoken ON fixture_messages(timetoken);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := p.db.QueryRow("SELECT COUNT(*) FROM fixture_users").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		if err := p.seedData(); err != nil {
			return fmt.Errorf("failed to seed fixtures: %w", err)
		}
	}

	return nil
}

func (p *PostgresDAL) seedData() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	userStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fixture_users (id, name, email, profile_url, custom)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer userStmt.Close()

	for _, u := range getDefaultUsers() {
		custom, err := encodeJSON(u.Custom)
		if err != nil {
			return err
		}
		if _, err := userStmt.ExecContext(ctx, u.ID, u.Name, u.Email, u.ProfileURL, custom); err != nil {
			return err
		}
	}

	channelStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fixture_channels (id, name, description, custom)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return err
	}
	defer channelStmt.Close()

	for _, c := range getDefaultChannels() {
		custom, err := encodeJSON(c.Custom)
		if err != nil {
			return err
		}
		if _, err := channelStmt.ExecContext(ctx, c.ID, c.Name, c.Description, custom); err != nil {
			return err
		}
	}

	messageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fixture_messages (channel, timetoken, uuid, publisher, payload)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer messageStmt.Close()

	for _, m := range getDefaultMessages() {
		payload, err := encodeJSON(m.Message)
		if err != nil {
			return err
		}
		if _, err := messageStmt.ExecContext(ctx, m.Channel, m.Timetoken, m.UUID, m.Publisher, payload); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgresDAL) Users() ([]models.User, error) {
	rows, err := p.db.Query(`
		SELECT id, name, email, profile_url, COALESCE(custom::text, 'null')
		FROM fixture_users
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var custom string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ProfileURL, &custom); err != nil {
			return nil, err
		}
		if u.Custom, err = decodeCustom(custom); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (p *PostgresDAL) Channels() ([]models.Channel, error) {
	rows, err := p.db.Query(`
		SELECT id, name, description, COALESCE(custom::text, 'null')
		FROM fixture_channels
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var c models.Channel
		var custom string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &custom); err != nil {
			return nil, err
		}
		if c.Custom, err = decodeCustom(custom); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}

	return channels, rows.Err()
}

func (p *PostgresDAL) Messages() ([]models.Message, error) {
	rows, err := p.db.Query(`
		SELECT channel, timetoken::text, uuid, publisher, payload::text
		FROM fixture_messages
		ORDER BY timetoken ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var payload string
		if err := rows.Scan(&m.Channel, &m.Timetoken, &m.UUID, &m.Publisher, &payload); err != nil {
			return nil, err
		}
		if m.Message, err = decodePayload(payload); err != nil {
			return nil, err
		}
		m.Actions = map[string]map[string][]models.ActionRef{}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// Close closes the connection pool
func (p *PostgresDAL) Close() error {
	return p.db.Close()
}
