package dal

import (
	"encoding/json"
	"fmt"

	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

func copyUsers(in []models.User) []models.User {
	return models.CloneUsers(in)
}

func copyChannels(in []models.Channel) []models.Channel {
	return models.CloneChannels(in)
}

// copyMessages deep-copies messages; Clone always leaves Actions non-nil
func copyMessages(in []models.Message) []models.Message {
	return models.CloneMessages(in)
}

// encodeJSON stores free-form fields as JSON text columns
func encodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode fixture column: %w", err)
	}
	return string(b), nil
}

func decodeCustom(s string) (map[string]interface{}, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var custom map[string]interface{}
	if err := json.Unmarshal([]byte(s), &custom); err != nil {
		return nil, fmt.Errorf("failed to decode custom column: %w", err)
	}
	return custom, nil
}

func decodePayload(s string) (interface{}, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode message payload: %w", err)
	}
	return payload, nil
}
