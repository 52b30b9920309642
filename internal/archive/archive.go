// Package archive reads and writes the ChatLab archive format, the
// portable serialization of a normalized corpus.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mama165/chatlab/internal/model"
)

const (
	Version   = "1.0"
	Generator = "chatlab"
)

// Header is the self-describing envelope every archive opens with.
// It must be the first top-level field so the sniffer can match it
// within its bounded prefix.
type Header struct {
	Version    string `json:"version"`
	ExportedAt int64  `json:"exportedAt"`
	Generator  string `json:"generator"`
}

type MetaBlock struct {
	Name     string        `json:"name"`
	Platform string        `json:"platform"`
	Type     string        `json:"type"`
	Sources  []SourceBlock `json:"sources"`
}

type SourceBlock struct {
	Filename     string `json:"filename"`
	Platform     string `json:"platform"`
	MessageCount int    `json:"messageCount"`
}

type MemberBlock struct {
	PlatformID string   `json:"platformId"`
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases,omitempty"`
}

type MessageBlock struct {
	Sender    string  `json:"sender"`
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp"`
	Type      string  `json:"type"`
	Content   *string `json:"content"`
}

type File struct {
	ChatLab  Header         `json:"chatlab"`
	Meta     MetaBlock      `json:"meta"`
	Members  []MemberBlock  `json:"members"`
	Messages []MessageBlock `json:"messages"`
}

// Write serializes a corpus to path.
func Write(c *model.Corpus, path string) error {
	doc := File{
		ChatLab: Header{
			Version:    Version,
			ExportedAt: time.Now().Unix(),
			Generator:  Generator,
		},
		Meta: MetaBlock{
			Name:     c.Meta.Name,
			Platform: string(c.Meta.Platform),
			Type:     string(c.Meta.ChatType),
			Sources:  make([]SourceBlock, 0, len(c.Sources)),
		},
		Members:  make([]MemberBlock, 0, len(c.Members)),
		Messages: make([]MessageBlock, 0, len(c.Messages)),
	}
	for _, s := range c.Sources {
		doc.Meta.Sources = append(doc.Meta.Sources, SourceBlock{
			Filename:     s.Filename,
			Platform:     string(s.Platform),
			MessageCount: s.MessageCount,
		})
	}
	for _, m := range c.Members {
		doc.Members = append(doc.Members, MemberBlock{
			PlatformID: m.PlatformID,
			Name:       m.Name,
			Aliases:    m.Aliases,
		})
	}
	for _, m := range c.Messages {
		doc.Messages = append(doc.Messages, MessageBlock{
			Sender:    m.SenderID,
			Name:      m.Name,
			Timestamp: m.Timestamp,
			Type:      string(m.Type),
			Content:   m.Content,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// SanitizeName strips path-unsafe characters from a conversation name.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "chat"
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OutputPath builds a collision-avoiding archive path under dir:
// {name}_merged_{YYYYMMDD}.chatlab.json, with _2, _3... suffixes if
// the file already exists.
func OutputPath(dir, name string, now time.Time) string {
	base := fmt.Sprintf("%s_merged_%s", SanitizeName(name), now.Format("20060102"))
	path := filepath.Join(dir, base+".chatlab.json")
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.chatlab.json", base, i))
	}
}

// DefaultOutputDir prefers a ChatLab folder under the user's Documents
// directory, falling back to the working directory.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Documents", "ChatLab")
}
