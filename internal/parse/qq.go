package parse

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mama165/chatlab/internal/model"
)

// qqParser handles JSON dumps produced by QQ history export helpers:
// a top-level object with chatName/chatType fields followed by a
// messages array.
type qqParser struct{}

func NewQQParser() Parser { return qqParser{} }

func (qqParser) Parse(path string, opts Options) (Stream, error) {
	env, err := openQQ(path)
	if err != nil {
		return nil, err
	}
	return newStream(env, opts), nil
}

type qqEnvelope struct {
	f    *os.File
	cr   *countingReader
	dec  *json.Decoder
	size int64
	m    model.Meta
}

type qqRecord struct {
	Uin       int64   `json:"uin"`
	Qid       string  `json:"qid"`
	Nickname  string  `json:"nickname"`
	Time      int64   `json:"time"`      // milliseconds
	Timestamp string  `json:"timestamp"` // ISO-8601 fallback
	IsSystem  bool    `json:"isSystem"`
	MsgType   *int    `json:"msgType"`
	Recalled  bool    `json:"recalled"`
	Content   *string `json:"content"`
	Resource  *struct {
		Type string `json:"type"`
	} `json:"resource"`
	Elements []struct {
		Type string `json:"type"`
	} `json:"elements"`
}

func openQQ(path string) (*qqEnvelope, error) {
	f, cr, dec, size, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	env := &qqEnvelope{f: f, cr: cr, dec: dec, size: size}
	env.m = model.Meta{Platform: model.PlatformQQ, ChatType: model.ChatDirect}

	if err := expectDelim(dec, '{'); err != nil {
		f.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// walk header keys until the messages array opens
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
		case "chatName":
			if err := dec.Decode(&env.m.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: chatName: %w", path, err)
			}
		case "chatType":
			var ct string
			if err := dec.Decode(&ct); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: chatType: %w", path, err)
			}
			if ct == "group" {
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

func (e *qqEnvelope) meta() model.Meta        { return e.m }
func (e *qqEnvelope) sources() []model.Source { return nil }
func (e *qqEnvelope) bytesRead() int64        { return e.cr.n }
func (e *qqEnvelope) bytesTotal() int64       { return e.size }
func (e *qqEnvelope) close() error            { return e.f.Close() }

func (e *qqEnvelope) next() (record, error) {
	var qr qqRecord
	if err := arrayNext(e.dec, &qr); err != nil {
		return record{}, err
	}

	rec := record{
		senderNum: qr.Uin,
		senderAlt: qr.Qid,
		name:      qr.Nickname,
		tsMillis:  qr.Time,
		tsISO:     qr.Timestamp,
		system:    qr.IsSystem,
		recalled:  qr.Recalled,
		content:   qr.Content,
	}
	if qr.Resource != nil {
		rec.resource = qr.Resource.Type
	}
	for _, el := range qr.Elements {
		rec.elements = append(rec.elements, el.Type)
	}
	if qr.MsgType != nil {
		rec.legacyType = qqLegacyType(*qr.MsgType)
	}
	return rec, nil
}

// qqLegacyType maps the historical numeric msgType codes.
func qqLegacyType(code int) model.MessageType {
	switch code {
	case 0:
		return model.TypeSystem
	case 1:
		return model.TypeText
	case 2:
		return model.TypeImage
	case 3:
		return model.TypeVoice
	case 4:
		return model.TypeVideo
	case 5:
		return model.TypeFile
	case 6:
		return model.TypeEmoji
	}
	return ""
}
