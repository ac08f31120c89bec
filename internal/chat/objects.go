package chat

import (
	"fmt"

	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

// GetAllUUIDMetadata lists every fixture user
func (c *MockClient) GetAllUUIDMetadata() []models.User {
	return models.CloneUsers(c.users)
}

// GetUUIDMetadata looks up one fixture user
func (c *MockClient) GetUUIDMetadata(uuid string) (*models.User, error) {
	for i := range c.users {
		if c.users[i].ID == uuid {
			u := c.users[i].Clone()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUUIDNotFound, uuid)
}

// GetAllChannelMetadata lists every fixture channel
func (c *MockClient) GetAllChannelMetadata() []models.Channel {
	return models.CloneChannels(c.channels)
}

// GetChannelMembers reports every fixture user as a member of any channel
func (c *MockClient) GetChannelMembers(channel string) []models.User {
	return c.GetAllUUIDMetadata()
}

// GetMemberships lists the channels the client belongs to
func (c *MockClient) GetMemberships() []models.Membership {
	out := make([]models.Membership, len(c.memberships))
	for i, id := range c.memberships {
		out[i].Channel.ID = id
	}
	return out
}
