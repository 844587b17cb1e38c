// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/verte-zerg/rollstats/internal/dice"
)

// Die ordering for summary rows.
const (
	DieOrderDiscovery = "discovery"
	DieOrderNumeric   = "numeric"
)

// Median conventions.
const (
	MedianOrder  = "order"
	MedianLegacy = "legacy"
)

// StatsConfig defines options for stats output.
type StatsConfig struct {
	User     string
	Locale   string
	Collapse bool
	DieOrder string
	Median   string
}

// RollRecord is one roll stored in the roll log.
type RollRecord struct {
	ID       int64
	Player   string
	RolledAt time.Time
	Roll     dice.Roll
}

// Message is a host chat message carrying a serialized roll.
type Message struct {
	User      string          `json:"user"`
	Timestamp int64           `json:"timestamp"`
	Roll      *string         `json:"roll,omitempty"`
	Rolls     []string        `json:"rolls,omitempty"`
	Content   string          `json:"content,omitempty"`
	Speaker   *MessageSpeaker `json:"speaker,omitempty"`
}

// MessageSpeaker identifies who spoke a message when the author is missing.
type MessageSpeaker struct {
	Alias string `json:"alias"`
}

// Author resolves the message author to a player name using the host's
// user table, then the speaker alias. The raw user id is the last resort.
func (m Message) Author(names map[string]string) string {
	if name, ok := names[m.User]; ok {
		return name
	}
	if m.Speaker != nil && strings.TrimSpace(m.Speaker.Alias) != "" {
		return m.Speaker.Alias
	}
	return m.User
}

// SerializedRolls returns every serialized roll attached to the message.
func (m Message) SerializedRolls() []string {
	out := make([]string, 0, len(m.Rolls)+1)
	if m.Roll != nil && *m.Roll != "" {
		out = append(out, *m.Roll)
	}
	out = append(out, m.Rolls...)
	return out
}

// RolledAt converts the host's millisecond timestamp.
func (m Message) RolledAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// User is a host user account.
type User struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Export is a host world export: its user roster and chat log.
type Export struct {
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}

// UserNames maps user ids to names.
func (e Export) UserNames() map[string]string {
	names := make(map[string]string, len(e.Users))
	for _, u := range e.Users {
		names[u.ID] = u.Name
	}
	return names
}

// DecodeExport parses a host export file.
func DecodeExport(data []byte) (Export, error) {
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return Export{}, fmt.Errorf("failed to decode export: %w", err)
	}
	return export, nil
}
