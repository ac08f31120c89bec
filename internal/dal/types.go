package dal

import "github.com/Billy-Davies-2/chat-mock/internal/models"

// FixtureDAL defines read access to the sample collections a mock client is seeded from
type FixtureDAL interface {
	Users() ([]models.User, error)
	Channels() ([]models.Channel, error)
	Messages() ([]models.Message, error)
	Close() error
}
