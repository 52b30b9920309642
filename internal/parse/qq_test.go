package parse

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/chatlab/internal/model"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func qqDoc(records ...string) string {
	return `{"chatName":"测试群","chatType":"group","messages":[` +
		strings.Join(records, ",") + `]}`
}

func TestQQParseBasic(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1001,"nickname":"阿明","time":1710072000000,"content":"早上好"}`,
		`{"uin":1002,"nickname":"小红","time":1710072060000,"content":"早"}`,
	))

	c, err := ParseFile(NewQQParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Meta.Name != "测试群" || c.Meta.Platform != model.PlatformQQ || c.Meta.ChatType != model.ChatGroup {
		t.Errorf("meta = %+v", c.Meta)
	}
	if len(c.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(c.Messages))
	}
	m := c.Messages[0]
	if m.SenderID != "1001" || m.Timestamp != 1710072000 || m.Type != model.TypeText || m.Text() != "早上好" {
		t.Errorf("message = %+v", m)
	}
	if len(c.Members) != 2 {
		t.Errorf("got %d members, want 2", len(c.Members))
	}
}

func TestQQParseSenderResolution(t *testing.T) {
	path := writeFixture(t, qqDoc(
		// numeric id preferred over the alternate id
		`{"uin":1001,"qid":"alt-1","nickname":"a","time":1710072000000,"content":"x"}`,
		// alternate id alone is enough
		`{"qid":"alt-2","nickname":"b","time":1710072001000,"content":"y"}`,
		// no sender at all: dropped
		`{"nickname":"c","time":1710072002000,"content":"z"}`,
	))

	c, err := ParseFile(NewQQParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(c.Messages))
	}
	if c.Messages[0].SenderID != "1001" {
		t.Errorf("sender = %s, want 1001", c.Messages[0].SenderID)
	}
	if c.Messages[1].SenderID != "alt-2" {
		t.Errorf("sender = %s, want alt-2", c.Messages[1].SenderID)
	}
}

func TestQQParseTimestamps(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1,"time":1710072000000,"content":"ms"}`,
		`{"uin":1,"timestamp":"2024-03-10T12:00:05Z","content":"iso"}`,
		// corrupt timestamp from 1970: silently dropped
		`{"uin":1,"time":12345,"content":"bad"}`,
		// no timestamp at all: dropped
		`{"uin":1,"content":"none"}`,
	))

	c, err := ParseFile(NewQQParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(c.Messages))
	}
	if c.Messages[0].Timestamp != 1710072000 {
		t.Errorf("ms timestamp = %d", c.Messages[0].Timestamp)
	}
	if c.Messages[1].Timestamp != 1710072005 {
		t.Errorf("iso timestamp = %d", c.Messages[1].Timestamp)
	}
}

func TestQQParseTypeClassification(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1,"time":1710072000000,"isSystem":true,"content":"joined"}`,
		`{"uin":1,"time":1710072001000,"resource":{"type":"image"}}`,
		`{"uin":1,"time":1710072002000,"resource":{"type":"audio"}}`,
		`{"uin":1,"time":1710072003000,"elements":[{"type":"face"}]}`,
		`{"uin":1,"time":1710072004000,"msgType":5}`,
		`{"uin":1,"time":1710072005000,"content":"plain"}`,
	))

	c, err := ParseFile(NewQQParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []model.MessageType{
		model.TypeSystem, model.TypeImage, model.TypeVoice,
		model.TypeEmoji, model.TypeFile, model.TypeText,
	}
	if len(c.Messages) != len(want) {
		t.Fatalf("got %d messages, want %d", len(c.Messages), len(want))
	}
	for i, w := range want {
		if c.Messages[i].Type != w {
			t.Errorf("message %d type = %s, want %s", i, c.Messages[i].Type, w)
		}
	}
	// non-text message without content stays nil
	if c.Messages[1].Content != nil {
		t.Errorf("image content = %v, want nil", *c.Messages[1].Content)
	}
}

func TestQQParseRecalledMarker(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1,"time":1710072000000,"recalled":true,"content":"secret"}`,
	))

	c, err := ParseFile(NewQQParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := c.Messages[0].Text(); got != "[已撤回] secret" {
		t.Errorf("content = %q", got)
	}
}

func TestQQParseMemberAliases(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1,"nickname":"旧名","time":1710072000000,"content":"a"}`,
		`{"uin":1,"nickname":"新名","time":1710072001000,"content":"b"}`,
		`{"uin":1,"nickname":"旧名","time":1710072002000,"content":"c"}`,
	))

	c, err := ParseFile(NewQQParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Members) != 1 {
		t.Fatalf("got %d members, want 1", len(c.Members))
	}
	m := c.Members[0]
	if m.Name != "旧名" {
		t.Errorf("name = %s, want first-seen 旧名", m.Name)
	}
	if len(m.Aliases) != 1 || m.Aliases[0] != "新名" {
		t.Errorf("aliases = %v, want [新名]", m.Aliases)
	}
}

func TestQQParseMalformedTopLevel(t *testing.T) {
	path := writeFixture(t, `{"chatName":"x","messages":[{"uin":1},`)

	_, err := ParseFile(NewQQParser(), path, Options{})
	if err == nil {
		t.Fatal("expected malformed-source error")
	}
}

func TestStreamEventOrder(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1,"nickname":"a","time":1710072000000,"content":"1"}`,
		`{"uin":1,"nickname":"a","time":1710072001000,"content":"2"}`,
		`{"uin":1,"nickname":"a","time":1710072002000,"content":"3"}`,
	))

	s, err := NewQQParser().Parse(path, Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer s.Close()

	var kinds []EventKind
	var batches []int
	var done *Summary
	for {
		ev, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventMessages {
			batches = append(batches, len(ev.Messages))
		}
		if ev.Kind == EventDone {
			done = ev.Done
		}
	}

	wantKinds := []EventKind{
		EventMeta,
		EventMembers, EventMessages, EventProgress,
		EventMembers, EventMessages, EventProgress,
		EventDone,
	}
	if len(kinds) != len(wantKinds) {
		t.Fatalf("kinds = %v, want %v", kinds, wantKinds)
	}
	for i := range kinds {
		if kinds[i] != wantKinds[i] {
			t.Fatalf("kinds = %v, want %v", kinds, wantKinds)
		}
	}
	if batches[0] != 2 || batches[1] != 1 {
		t.Errorf("batch sizes = %v, want [2 1]", batches)
	}
	if done == nil || done.Messages != 3 || done.Members != 1 {
		t.Errorf("done = %+v", done)
	}
}

func TestStreamProgressCallback(t *testing.T) {
	path := writeFixture(t, qqDoc(
		`{"uin":1,"time":1710072000000,"content":"1"}`,
		`{"uin":1,"time":1710072001000,"content":"2"}`,
	))

	var calls []Progress
	c, err := ParseFile(NewQQParser(), path, Options{
		BatchSize: 1,
		Progress:  func(p Progress) { calls = append(calls, p) },
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Messages) != 2 {
		t.Fatalf("got %d messages", len(c.Messages))
	}
	if len(calls) != 2 {
		t.Fatalf("got %d progress calls, want 2", len(calls))
	}
	if calls[1].Messages != 2 {
		t.Errorf("final progress = %+v", calls[1])
	}
	if calls[1].BytesTotal == 0 || calls[1].BytesRead == 0 {
		t.Errorf("byte counters missing: %+v", calls[1])
	}
}
