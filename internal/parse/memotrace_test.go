package parse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/chatlab/internal/model"
)

func mtDoc(records ...string) string {
	return `{"info":{"name":"家人","type":"private"},"messages":[` +
		strings.Join(records, ",") + `]}`
}

func TestMemoTraceParseBasic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wechat.json")
	doc := mtDoc(
		`{"wxid":"wx_aaa","sender":"妈妈","CreateTime":1710072000000,"type_name":"文本","msg":"吃饭了吗"}`,
		`{"id":42,"sender":"我","CreateTime":1710072060000,"type_name":"图片"}`,
		`{"wxid":"wx_aaa","sender":"妈妈","CreateTime":1710072120000,"type_name":"文本","is_recalled":true,"msg":"算了"}`,
	)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := ParseFile(NewMemoTraceParser(), path, Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Meta.Name != "家人" || c.Meta.Platform != model.PlatformWeChat || c.Meta.ChatType != model.ChatDirect {
		t.Errorf("meta = %+v", c.Meta)
	}
	if len(c.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(c.Messages))
	}
	if c.Messages[0].SenderID != "wx_aaa" || c.Messages[0].Text() != "吃饭了吗" {
		t.Errorf("message 0 = %+v", c.Messages[0])
	}
	if c.Messages[1].SenderID != "42" || c.Messages[1].Type != model.TypeImage {
		t.Errorf("message 1 = %+v", c.Messages[1])
	}
	if got := c.Messages[2].Text(); got != "[已撤回] 算了" {
		t.Errorf("recalled content = %q", got)
	}
}

func TestMemoTraceTypeNames(t *testing.T) {
	cases := map[string]model.MessageType{
		"文本":   model.TypeText,
		"图片":   model.TypeImage,
		"语音":   model.TypeVoice,
		"视频":   model.TypeVideo,
		"文件":   model.TypeFile,
		"动画表情": model.TypeEmoji,
		"系统消息": model.TypeSystem,
		"未知":   model.TypeText, // unknown codes default to text
	}
	for name, want := range cases {
		if got := classifyType(record{legacyType: mtLegacyType(name)}); got != want {
			t.Errorf("type_name %q = %s, want %s", name, got, want)
		}
	}
}
