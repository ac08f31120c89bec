package chat

import (
	"errors"
	"testing"

	"github.com/Billy-Davies-2/chat-mock/internal/dal"
)

func TestObjectsFromFixtures(t *testing.T) {
	c, err := NewMockClient(dal.NewMemoryDAL(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	users := c.GetAllUUIDMetadata()
	if len(users) != 5 {
		t.Fatalf("expected 5 users, got %d", len(users))
	}

	me, err := c.GetUUIDMetadata(c.UUID())
	if err != nil {
		t.Fatalf("GetUUIDMetadata() failed: %v", err)
	}
	if me.ID != c.UUID() {
		t.Errorf("expected %s, got %s", c.UUID(), me.ID)
	}

	if _, err := c.GetUUIDMetadata("user_nobody"); !errors.Is(err, ErrUUIDNotFound) {
		t.Errorf("expected ErrUUIDNotFound, got %v", err)
	}

	channels := c.GetAllChannelMetadata()
	if len(channels) != 5 || channels[0].Name != "Introductions" {
		t.Errorf("unexpected channels: %+v", channels)
	}

	if members := c.GetChannelMembers("space_ac4e67b98b34b44c4a39466e93e"); len(members) != len(users) {
		t.Errorf("expected every user as member, got %d", len(members))
	}

	memberships := c.GetMemberships()
	if len(memberships) != 5 {
		t.Fatalf("expected 5 memberships, got %d", len(memberships))
	}
	if memberships[2].Channel.ID != "space_ce466f2e445c38976168ba78e46" {
		t.Errorf("unexpected membership order: %+v", memberships)
	}
}

func TestObjectsReturnCopies(t *testing.T) {
	c, err := NewMockClient(dal.NewMemoryDAL(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	users := c.GetAllUUIDMetadata()
	users[0].Name = "Mallory"

	if c.GetAllUUIDMetadata()[0].Name == "Mallory" {
		t.Error("callers must not be able to edit fixture users")
	}
}
