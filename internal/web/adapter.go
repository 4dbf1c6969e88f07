package web

import (
	"context"
	"sync"

	"github.com/edgard/companionbot/internal/agent"
)

// WhoBot marks items written by the bot.
const WhoBot = "bot"

// Item is one entry of an /answer response. Text items carry Text; media
// items carry URL and the MIME fields.
type Item struct {
	Who       string `json:"who"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	MimeClass string `json:"mime_class,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
}

// Collector is a channel adapter that keeps delivered parts for the HTTP
// response instead of sending them anywhere.
type Collector struct {
	mu    sync.Mutex
	items []Item
}

func (c *Collector) Name() string { return "web" }

func (c *Collector) Deliver(_ context.Context, parts []agent.OutputPart) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range parts {
		switch v := p.(type) {
		case agent.TextPart:
			if text := agent.DisplayText(v); text != "" {
				c.items = append(c.items, Item{Who: WhoBot, Text: text})
			}
		case agent.ResolvedArtifact:
			c.items = append(c.items, Item{
				Who:       WhoBot,
				URL:       v.URL,
				MimeClass: string(v.MimeClass),
				MimeType:  v.MIMEType,
			})
		}
	}
	return nil
}

// Items returns what has been delivered so far. It is never nil.
func (c *Collector) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item{}, c.items...)
}
