// Package model contains core concepts of the chat system.
// Parsed values are immutable once emitted by a parser.
package model

// Platform identifies the chat service an export came from.
type Platform string

const (
	PlatformQQ      Platform = "qq"
	PlatformWeChat  Platform = "wechat"
	PlatformChatLab Platform = "chatlab"
	PlatformMixed   Platform = "mixed"
)

// ChatType distinguishes one-on-one chats from group chats.
type ChatType string

const (
	ChatDirect ChatType = "direct"
	ChatGroup  ChatType = "group"
)

// MessageType classifies a message's payload.
type MessageType string

const (
	TypeText   MessageType = "text"
	TypeImage  MessageType = "image"
	TypeVoice  MessageType = "voice"
	TypeVideo  MessageType = "video"
	TypeFile   MessageType = "file"
	TypeEmoji  MessageType = "emoji"
	TypeSystem MessageType = "system"
)

// SystemSenderID is the sentinel platform id used for system notices.
// Analytics exclude it from member rankings.
const SystemSenderID = "system"

type Meta struct {
	Name     string
	Platform Platform
	ChatType ChatType
}

// Member is a chat participant. PlatformID is unique within one corpus;
// Aliases collects other display names seen for the same id across sources.
type Member struct {
	PlatformID string
	Name       string
	Aliases    []string
}

type Message struct {
	SenderID  string
	Name      string // display name at time of send
	Timestamp int64  // unix seconds
	Type      MessageType
	Content   *string // nil for non-text or redacted content
}

// Source records where a merged corpus's messages came from.
type Source struct {
	Filename     string
	Platform     Platform
	MessageCount int
}

// Corpus is a fully normalized conversation: the output of draining one
// parse stream or of a merge.
type Corpus struct {
	Meta     Meta
	Sources  []Source
	Members  []Member
	Messages []Message
}

// Text returns the message content, or "" when content is absent.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// StrPtr is a convenience for building Message content values.
func StrPtr(s string) *string { return &s }
