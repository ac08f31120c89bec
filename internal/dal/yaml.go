package dal

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

// fixtureFile is the on-disk layout of a fixtures file
type fixtureFile struct {
	Users    []models.User    `yaml:"users"`
	Channels []models.Channel `yaml:"channels"`
	Messages []models.Message `yaml:"messages"`
}

// NewYAMLDAL loads users, channels and messages from a YAML file into memory.
// Collections missing from the file fall back to the built-in sample data.
func NewYAMLDAL(path string) (*MemoryDAL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}

	if f.Users == nil {
		f.Users = getDefaultUsers()
	}
	if f.Channels == nil {
		f.Channels = getDefaultChannels()
	}
	if f.Messages == nil {
		f.Messages = getDefaultMessages()
	}

	tokens := make(map[string]int64, len(f.Messages))
	for i, msg := range f.Messages {
		if msg.Channel == "" {
			return nil, fmt.Errorf("fixtures: message %d has no channel", i)
		}
		if msg.Timetoken == "" {
			return nil, fmt.Errorf("fixtures: message %d has no timetoken", i)
		}
		tt, err := strconv.ParseInt(msg.Timetoken, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fixtures: message %d has non-numeric timetoken %q", i, msg.Timetoken)
		}
		tokens[msg.Timetoken] = tt
		if msg.Publisher == "" {
			f.Messages[i].Publisher = msg.UUID
		}
	}

	// history is served in timetoken order whatever order the file lists it in
	sort.SliceStable(f.Messages, func(a, b int) bool {
		return tokens[f.Messages[a].Timetoken] < tokens[f.Messages[b].Timetoken]
	})

	return NewMemoryDALWith(f.Users, f.Channels, f.Messages), nil
}
