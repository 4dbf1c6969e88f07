package database

import "time"

// Roles stored in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block is a stored piece of generated media, addressed by a UUID.
type Block struct {
	ID        string    `db:"id"`
	MimeType  string    `db:"mime_type"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// Message is one turn of a conversation. ChatKey scopes history per channel
// and chat, e.g. "telegram:12345" or "web:<session id>".
type Message struct {
	ID        int64     `db:"id"`
	ChatKey   string    `db:"chat_key"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
