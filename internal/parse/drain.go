package parse

import (
	"io"

	"github.com/mama165/chatlab/internal/model"
)

// Drain consumes a stream to completion and collects the result into a
// corpus. The stream is closed regardless of outcome.
func Drain(s Stream) (*model.Corpus, error) {
	defer s.Close()

	c := &model.Corpus{}
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return c, nil
		}
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case EventMeta:
			c.Meta = *ev.Meta
			c.Sources = ev.Sources
		case EventMembers:
			c.Members = ev.Members // cumulative snapshot, last one wins
		case EventMessages:
			c.Messages = append(c.Messages, ev.Messages...)
		}
	}
}

// ParseFile is the common sniff-free entry: run the given parser over
// path and collect everything.
func ParseFile(p Parser, path string, opts Options) (*model.Corpus, error) {
	s, err := p.Parse(path, opts)
	if err != nil {
		return nil, err
	}
	return Drain(s)
}
