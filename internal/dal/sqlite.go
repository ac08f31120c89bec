package dal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

// SQLiteDAL implements FixtureDAL using SQLite
type SQLiteDAL struct {
	db *sql.DB
}

// NewSQLiteDAL opens (or creates) a SQLite fixtures database, seeding it when empty
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	dal := &SQLiteDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		profile_url TEXT NOT NULL DEFAULT '',
		custom TEXT NOT NULL DEFAULT 'null'
	);

	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		custom TEXT NOT NULL DEFAULT 'null'
	);

	CREATE TABLE IF NOT EXISTS messages (
		channel TEXT NOT NULL,
		timetoken TEXT NOT NULL,
		uuid TEXT NOT NULL,
		publisher TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		PRIMARY KEY (channel, timetoken)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		if err := s.seedData(); err != nil {
			return fmt.Errorf("failed to seed fixtures: %w", err)
		}
	}

	return nil
}

func (s *SQLiteDAL) seedData() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range getDefaultUsers() {
		custom, err := encodeJSON(u.Custom)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO users (id, name, email, profile_url, custom) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.ProfileURL, custom); err != nil {
			return err
		}
	}

	for _, c := range getDefaultChannels() {
		custom, err := encodeJSON(c.Custom)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO channels (id, name, description, custom) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, custom); err != nil {
			return err
		}
	}

	for _, m := range getDefaultMessages() {
		payload, err := encodeJSON(m.Message)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO messages (channel, timetoken, uuid, publisher, payload) VALUES (?, ?, ?, ?, ?)`,
			m.Channel, m.Timetoken, m.UUID, m.Publisher, payload); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteDAL) Users() ([]models.User, error) {
	rows, err := s.db.Query("SELECT id, name, email, profile_url, custom FROM users ORDER BY rowid")
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

func (s *SQLiteDAL) Channels() ([]models.Channel, error) {
	rows, err := s.db.Query("SELECT id, name, description, custom FROM channels ORDER BY rowid")
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

func (s *SQLiteDAL) Messages() ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT channel, timetoken, uuid, publisher, payload
		FROM messages
		ORDER BY CAST(timetoken AS INTEGER), rowid
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

// Close closes the database handle
func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}
