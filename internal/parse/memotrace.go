package parse

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mama165/chatlab/internal/model"
)

// memoTraceParser handles MemoTrace-style WeChat exports: a top-level
// info block followed by a messages array.
type memoTraceParser struct{}

func NewMemoTraceParser() Parser { return memoTraceParser{} }

func (memoTraceParser) Parse(path string, opts Options) (Stream, error) {
	env, err := openMemoTrace(path)
	if err != nil {
		return nil, err
	}
	return newStream(env, opts), nil
}

type mtEnvelope struct {
	f    *os.File
	cr   *countingReader
	dec  *json.Decoder
	size int64
	m    model.Meta
}

type mtInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // "group" or "private"
}

type mtRecord struct {
	ID         int64   `json:"id"`   // numeric sender id
	Wxid       string  `json:"wxid"` // alternate id
	Sender     string  `json:"sender"`
	CreateTime int64   `json:"CreateTime"` // milliseconds
	Timestamp  string  `json:"timestamp"`
	IsSystem   bool    `json:"is_system"`
	TypeName   string  `json:"type_name"`
	IsRecalled bool    `json:"is_recalled"`
	Msg        *string `json:"msg"`
}

func openMemoTrace(path string) (*mtEnvelope, error) {
	f, cr, dec, size, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	env := &mtEnvelope{f: f, cr: cr, dec: dec, size: size}
	env.m = model.Meta{Platform: model.PlatformWeChat, ChatType: model.ChatDirect}

	if err := expectDelim(dec, '{'); err != nil {
		f.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for {
		t, err := dec.Token()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		key, ok := t.(string)
		if !ok {
			f.Close()
			return nil, fmt.Errorf("parse %s: unexpected token %v", path, t)
		}
		switch key {
		case "info":
			var info mtInfo
			if err := dec.Decode(&info); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: info: %w", path, err)
			}
			env.m.Name = info.Name
			if info.Type == "group" {
				env.m.ChatType = model.ChatGroup
			}
		case "messages":
			if err := expectDelim(dec, '['); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: messages: %w", path, err)
			}
			return env, nil
		default:
			if err := skipValue(dec); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
}

func (e *mtEnvelope) meta() model.Meta        { return e.m }
func (e *mtEnvelope) sources() []model.Source { return nil }
func (e *mtEnvelope) bytesRead() int64        { return e.cr.n }
func (e *mtEnvelope) bytesTotal() int64       { return e.size }
func (e *mtEnvelope) close() error            { return e.f.Close() }

func (e *mtEnvelope) next() (record, error) {
	var mr mtRecord
	if err := arrayNext(e.dec, &mr); err != nil {
		return record{}, err
	}
	return record{
		senderNum:  mr.ID,
		senderAlt:  mr.Wxid,
		name:       mr.Sender,
		tsMillis:   mr.CreateTime,
		tsISO:      mr.Timestamp,
		system:     mr.IsSystem,
		legacyType: mtLegacyType(mr.TypeName),
		recalled:   mr.IsRecalled,
		content:    mr.Msg,
	}, nil
}

// mtLegacyType maps MemoTrace's localized type_name strings.
func mtLegacyType(name string) model.MessageType {
	switch name {
	case "文本":
		return model.TypeText
	case "图片":
		return model.TypeImage
	case "语音":
		return model.TypeVoice
	case "视频":
		return model.TypeVideo
	case "文件":
		return model.TypeFile
	case "动画表情", "表情包":
		return model.TypeEmoji
	case "系统消息":
		return model.TypeSystem
	}
	return ""
}
