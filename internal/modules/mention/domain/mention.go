package domain

import "time"

// Mention is a single detected mention of a tracked nickname, as handed to
// the notification dispatcher and kept in the history log.
type Mention struct {
	Nickname   string    `json:"nickname"`
	ChatID     int64     `json:"chat_id"`
	ChatTitle  string    `json:"chat_title"`
	ChatHandle string    `json:"chat_handle"`
	MessageID  int64     `json:"message_id"`
	Text       string    `json:"text"`
	Edited     bool      `json:"edited"`
	Date       time.Time `json:"date"`
}
