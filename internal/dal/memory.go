package dal

import (
	"sync"

	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

// MemoryDAL implements FixtureDAL using in-memory storage
type MemoryDAL struct {
	mu       sync.RWMutex
	users    []models.User
	channels []models.Channel
	messages []models.Message
}

// NewMemoryDAL creates an in-memory fixture store holding the built-in sample data
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		users:    getDefaultUsers(),
		channels: getDefaultChannels(),
		messages: getDefaultMessages(),
	}
}

// NewMemoryDALWith creates an in-memory fixture store holding the given collections
func NewMemoryDALWith(users []models.User, channels []models.Channel, messages []models.Message) *MemoryDAL {
	return &MemoryDAL{
		users:    copyUsers(users),
		channels: copyChannels(channels),
		messages: copyMessages(messages),
	}
}

func (m *MemoryDAL) Users() ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUsers(m.users), nil
}

func (m *MemoryDAL) Channels() ([]models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyChannels(m.channels), nil
}

func (m *MemoryDAL) Messages() ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMessages(m.messages), nil
}

// Close is a no-op for the in-memory store
func (m *MemoryDAL) Close() error {
	return nil
}

func getDefaultUsers() []models.User {
	return []models.User{
		{ID: "user_63ea15931d8541a3bd35e5b1f09087dc", Name: "Mark Kelley", Email: "mark.kelley@example.com", ProfileURL: "https://randomuser.me/api/portraits/men/1.jpg", Custom: map[string]interface{}{"title": "Office Assistant"}},
		{ID: "user_732277cad5264ed48172c40f0f008104", Name: "Anna Gordon", Email: "anna.gordon@example.com", ProfileURL: "https://randomuser.me/api/portraits/women/2.jpg", Custom: map[string]interface{}{"title": "VP Marketing"}},
		{ID: "user_a673547880824a0687b3041af36a5de4", Name: "Luis Griffin", Email: "luis.griffin@example.com", ProfileURL: "https://randomuser.me/api/portraits/men/3.jpg", Custom: map[string]interface{}{"title": "Product Designer"}},
		{ID: "user_2ada61d287aa42b59d620c474493474f", Name: "Sue Flores", Email: "sue.flores@example.com", ProfileURL: "https://randomuser.me/api/portraits/women/4.jpg", Custom: map[string]interface{}{"title": "Software Engineer"}},
		{ID: "user_5500315bf0a34f9b9dfa0e4fffcf49c2", Name: "Frank Wilson", Email: "frank.wilson@example.com", ProfileURL: "https://randomuser.me/api/portraits/men/5.jpg", Custom: map[string]interface{}{"title": "Account Executive"}},
	}
}

func getDefaultChannels() []models.Channel {
	return []models.Channel{
		{ID: "space_ac4e67b98b34b44c4a39466e93e", Name: "Introductions", Description: "This channel is for company wide chatter", Custom: map[string]interface{}{"thumb": "https://www.gravatar.com/avatar/149e60f311749f2a7c6515f7b34?s=256&d=identicon"}},
		{ID: "space_c1ee1eda28554d0a34f9b9df5cfe", Name: "Company Culture", Description: "Company culture space", Custom: map[string]interface{}{"thumb": "https://www.gravatar.com/avatar/c1ee1eda28554d0a34f9b9df5cfe?s=256&d=identicon"}},
		{ID: "space_ce466f2e445c38976168ba78e46", Name: "Daily Standup", Description: "Async virtual standup", Custom: map[string]interface{}{"thumb": "https://www.gravatar.com/avatar/ce466f2e445c38976168ba78e46?s=256&d=identicon"}},
		{ID: "space_a204f87d215a40985d35cf84bf5", Name: "Examples", Description: "Sample snippets and demos", Custom: map[string]interface{}{"thumb": "https://www.gravatar.com/avatar/a204f87d215a40985d35cf84bf5?s=256&d=identicon"}},
		{ID: "space_149e60f311749f2a7c6515f7b34", Name: "Running Club", Description: "Running tips and weekend meetups", Custom: map[string]interface{}{"thumb": "https://www.gravatar.com/avatar/149e60f311749f2a7c6515f7b34?s=256&d=identicon"}},
	}
}

func getDefaultMessages() []models.Message {
	const standup = "space_ce466f2e445c38976168ba78e46"
	const intro = "space_ac4e67b98b34b44c4a39466e93e"

	text := func(channel, timetoken, uuid, body string) models.Message {
		return models.Message{
			Channel:   channel,
			Message:   map[string]interface{}{"type": "text", "text": body},
			Timetoken: timetoken,
			UUID:      uuid,
			Publisher: uuid,
			Actions:   map[string]map[string][]models.ActionRef{},
		}
	}

	return []models.Message{
		text(intro, "16165851271766362", "user_732277cad5264ed48172c40f0f008104", "Hi everyone, I just joined the marketing team!"),
		text(intro, "16165851310548132", "user_5500315bf0a34f9b9dfa0e4fffcf49c2", "Welcome aboard Anna 👋"),
		text(standup, "16165852032564214", "user_a673547880824a0687b3041af36a5de4", "Yesterday: wireframes for the onboarding flow. Today: review with the team."),
		text(standup, "16165852171306598", "user_2ada61d287aa42b59d620c474493474f", "Finished the presence indicator, picking up message reactions next."),
		text(standup, "16165852359807162", "user_63ea15931d8541a3bd35e5b1f09087dc", "Ordering lunch for the offsite, reply with preferences by noon."),
		text(standup, "16165852520011736", "user_732277cad5264ed48172c40f0f008104", "Launch copy is ready for review."),
		text(standup, "16165852688741227", "user_5500315bf0a34f9b9dfa0e4fffcf49c2", "Two demos booked for Thursday."),
	}
}
