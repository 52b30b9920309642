package parse

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mama165/chatlab/internal/archive"
	"github.com/mama165/chatlab/internal/model"
)

// chatLabParser re-reads the archive format this tool emits, so merged
// corpora can be re-imported through the same pipeline as raw exports.
type chatLabParser struct{}

func NewChatLabParser() Parser { return chatLabParser{} }

func (chatLabParser) Parse(path string, opts Options) (Stream, error) {
	env, err := openChatLab(path)
	if err != nil {
		return nil, err
	}
	s := newStream(env, opts)
	for _, m := range env.members {
		s.seedMember(m)
	}
	return s, nil
}

type clEnvelope struct {
	f       *os.File
	cr      *countingReader
	dec     *json.Decoder
	size    int64
	m       model.Meta
	srcs    []model.Source
	members []model.Member
}

func openChatLab(path string) (*clEnvelope, error) {
	f, cr, dec, size, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	env := &clEnvelope{f: f, cr: cr, dec: dec, size: size}

	if err := expectDelim(dec, '{'); err != nil {
		f.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	sawHeader := false
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
		case "chatlab":
			var h archive.Header
			if err := dec.Decode(&h); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: header: %w", path, err)
			}
			sawHeader = true
		case "meta":
			var mb archive.MetaBlock
			if err := dec.Decode(&mb); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: meta: %w", path, err)
			}
			env.m = model.Meta{
				Name:     mb.Name,
				Platform: model.Platform(mb.Platform),
				ChatType: model.ChatType(mb.Type),
			}
			for _, s := range mb.Sources {
				env.srcs = append(env.srcs, model.Source{
					Filename:     s.Filename,
					Platform:     model.Platform(s.Platform),
					MessageCount: s.MessageCount,
				})
			}
		case "members":
			var blocks []archive.MemberBlock
			if err := dec.Decode(&blocks); err != nil {
				f.Close()
				return nil, fmt.Errorf("parse %s: members: %w", path, err)
			}
			for _, b := range blocks {
				env.members = append(env.members, model.Member{
					PlatformID: b.PlatformID,
					Name:       b.Name,
					Aliases:    b.Aliases,
				})
			}
		case "messages":
			if !sawHeader {
				f.Close()
				return nil, fmt.Errorf("parse %s: missing chatlab header", path)
			}
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

func (e *clEnvelope) meta() model.Meta        { return e.m }
func (e *clEnvelope) sources() []model.Source { return e.srcs }
func (e *clEnvelope) bytesRead() int64        { return e.cr.n }
func (e *clEnvelope) bytesTotal() int64       { return e.size }
func (e *clEnvelope) close() error            { return e.f.Close() }

func (e *clEnvelope) next() (record, error) {
	var mb archive.MessageBlock
	if err := arrayNext(e.dec, &mb); err != nil {
		return record{}, err
	}
	return record{
		senderAlt: mb.Sender,
		name:      mb.Name,
		tsSeconds: mb.Timestamp,
		fixedType: model.MessageType(mb.Type),
		content:   mb.Content,
	}, nil
}
