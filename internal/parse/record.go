package parse

import (
	"strconv"
	"time"

	"github.com/mama165/chatlab/internal/model"
)

// recalledMarker is prefixed to the content of retracted messages
// instead of discarding them.
const recalledMarker = "[已撤回] "

// minValidUnix is 2000-01-01T00:00:00Z. Export tools occasionally emit
// zeroed or garbage timestamps; anything earlier is treated as corrupt.
const minValidUnix = 946684800

// record is the format-neutral shape every envelope decodes into.
// Normalization rules apply uniformly regardless of the source format.
type record struct {
	senderNum int64  // numeric sender id, preferred when > 0
	senderAlt string // alternate sender id field
	system    bool   // explicit system-message flag
	name      string // display name at time of send

	tsMillis  int64  // integer timestamp, milliseconds
	tsSeconds int64  // pre-normalized timestamp (archive records)
	tsISO     string // ISO-8601 fallback

	resource   string            // attached resource type: image/video/audio/voice/file
	elements   []string          // inline element markers: face/sticker/...
	legacyType model.MessageType // per-format type code, already mapped
	fixedType  model.MessageType // pre-classified type (archive records)

	recalled bool
	content  *string
}

// normalize applies the per-record rules and updates the stream's member
// map. It reports false when the record must be dropped.
func (s *stream) normalize(rec record) (model.Message, bool) {
	sender := resolveSender(rec)
	if sender == "" {
		return model.Message{}, false
	}

	ts, ok := resolveTimestamp(rec)
	if !ok {
		return model.Message{}, false
	}

	msgType := classifyType(rec)

	content := rec.content
	if rec.recalled {
		content = model.StrPtr(recalledMarker + deref(content))
	}
	if msgType != model.TypeText && deref(content) == "" {
		content = nil
	}

	s.trackMember(sender, rec.name)

	return model.Message{
		SenderID:  sender,
		Name:      rec.name,
		Timestamp: ts,
		Type:      msgType,
		Content:   content,
	}, true
}

// resolveSender prefers the numeric id over the alternate id field.
// System notices without any sender fall back to the sentinel id;
// ordinary records without one are dropped.
func resolveSender(rec record) string {
	if rec.senderNum > 0 {
		return strconv.FormatInt(rec.senderNum, 10)
	}
	if rec.senderAlt != "" {
		return rec.senderAlt
	}
	if rec.system {
		return model.SystemSenderID
	}
	return ""
}

func resolveTimestamp(rec record) (int64, bool) {
	var sec int64
	switch {
	case rec.tsSeconds != 0:
		sec = rec.tsSeconds
	case rec.tsMillis != 0:
		sec = rec.tsMillis / 1000
	case rec.tsISO != "":
		t, ok := parseISO(rec.tsISO)
		if !ok {
			return 0, false
		}
		sec = t.Unix()
	default:
		return 0, false
	}
	if sec < minValidUnix {
		return 0, false
	}
	return sec, true
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// classifyType runs the priority chain: system flag, attached resource,
// inline element markers, legacy type code, default text.
func classifyType(rec record) model.MessageType {
	if rec.fixedType != "" {
		return rec.fixedType
	}
	if rec.system {
		return model.TypeSystem
	}
	switch rec.resource {
	case "image":
		return model.TypeImage
	case "video":
		return model.TypeVideo
	case "voice", "audio":
		return model.TypeVoice
	case "file":
		return model.TypeFile
	}
	for _, el := range rec.elements {
		if el == "face" || el == "sticker" {
			return model.TypeEmoji
		}
	}
	if rec.legacyType != "" {
		return rec.legacyType
	}
	return model.TypeText
}

// trackMember records the sender in the member map. The first-seen name
// wins; later distinct names accumulate as aliases.
func (s *stream) trackMember(id, name string) {
	m, ok := s.members[id]
	if !ok {
		s.members[id] = &model.Member{PlatformID: id, Name: name}
		s.order = append(s.order, id)
		return
	}
	if m.Name == "" {
		m.Name = name
		return
	}
	if name == "" || name == m.Name {
		return
	}
	for _, a := range m.Aliases {
		if a == name {
			return
		}
	}
	m.Aliases = append(m.Aliases, name)
}

// seedMember pre-populates the member map, used by archive streams whose
// members block precedes the messages.
func (s *stream) seedMember(m model.Member) {
	if _, ok := s.members[m.PlatformID]; ok {
		return
	}
	cp := model.Member{PlatformID: m.PlatformID, Name: m.Name}
	if len(m.Aliases) > 0 {
		cp.Aliases = append([]string(nil), m.Aliases...)
	}
	s.members[m.PlatformID] = &cp
	s.order = append(s.order, m.PlatformID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
