package chat

import (
	"encoding/json"
	"sort"

	"food-delivery/panel/models"
)

// normalizeHistory flattens the two response shapes the backend is known to
// return for a chat history fetch: either the chat object itself, or an
// array of one containing it. Anything else counts as an empty history so a
// bad payload never takes the screen down.
func normalizeHistory(raw json.RawMessage) []models.Message {
	if len(raw) == 0 {
		return nil
	}

	var chat models.Chat
	if err := json.Unmarshal(raw, &chat); err == nil && chat.Messages != nil {
		return sortMessages(chat.Messages)
	}

	var chats []models.Chat
	if err := json.Unmarshal(raw, &chats); err == nil && len(chats) > 0 {
		return sortMessages(chats[0].Messages)
	}

	return nil
}

func sortMessages(msgs []models.Message) []models.Message {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs
}
