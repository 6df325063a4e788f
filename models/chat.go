package models

import (
	"strings"
	"time"
)

// TempIDPrefix marks locally generated message ids used for optimistic
// sends until the server confirms them.
const TempIDPrefix = "temp-"

type Chat struct {
	ID                int       `json:"id"`
	AdminConversation bool      `json:"adminConversation"`
	BusinessID        string    `json:"businessId"`
	CustomerID        string    `json:"customerId"`
	Business          *Business `json:"business,omitempty"`
	Customer          *Customer `json:"customer,omitempty"`
	// The backend spells this field with three s's.
	Messages []Message `json:"messsages,omitempty"`
}

type Business struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
	Image        string `json:"image"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
}

type Customer struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
	Image       string `json:"image"`
}

type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	IsSender  bool      `json:"isSender"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pending reports whether the message is an optimistic local echo that has
// not been confirmed by the server yet.
func (m Message) Pending() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// HasParticipant reports whether senderID belongs to one of the chat's two
// parties. Business and customer ids are assumed to come from disjoint id
// spaces; routing by sender id is only correct under that precondition.
func (c Chat) HasParticipant(senderID string) bool {
	return senderID != "" && (c.BusinessID == senderID || c.CustomerID == senderID)
}

// DisplayName returns the counterpart's name for chat list rows.
func (c Chat) DisplayName() string {
	if c.Customer != nil {
		name := strings.TrimSpace(c.Customer.FirstName + " " + c.Customer.LastName)
		if name != "" {
			return name
		}
	}
	if c.Business != nil && c.Business.BusinessName != "" {
		return c.Business.BusinessName
	}
	return "Unknown"
}
