package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		chat Chat
		want string
	}{
		{
			name: "customer name",
			chat: Chat{Customer: &Customer{FirstName: "Jane", LastName: "Doe"}},
			want: "Jane Doe",
		},
		{
			name: "business fallback when customer name is blank",
			chat: Chat{
				Customer: &Customer{},
				Business: &Business{BusinessName: "Defood"},
			},
			want: "Defood",
		},
		{
			name: "business name",
			chat: Chat{Business: &Business{BusinessName: "Defood"}},
			want: "Defood",
		},
		{
			name: "no counterpart data",
			chat: Chat{},
			want: "Unknown",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.chat.DisplayName())
		})
	}
}

func TestHasParticipant(t *testing.T) {
	c := Chat{ID: 1, BusinessID: "biz-1", CustomerID: "cust-1"}

	assert.True(t, c.HasParticipant("biz-1"))
	assert.True(t, c.HasParticipant("cust-1"))
	assert.False(t, c.HasParticipant("stranger"))
	assert.False(t, c.HasParticipant(""))
}

func TestPending(t *testing.T) {
	assert.True(t, Message{ID: TempIDPrefix + "abc"}.Pending())
	assert.False(t, Message{ID: "srv-1"}.Pending())
}
