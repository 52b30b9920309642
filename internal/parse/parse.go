// Package parse turns export files into a normalized event stream.
//
// A parser yields a lazy, single-pass, forward-only sequence of events:
// one Meta event, then per batch a Members snapshot, a Messages batch and
// a Progress event, then a terminal Done event. Internal buffering is
// limited to one batch plus the member map, so arbitrarily large files
// can be consumed in bounded memory. A stream is not restartable.
package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mama165/chatlab/internal/model"
)

const DefaultBatchSize = 2000

type EventKind int

const (
	EventMeta EventKind = iota
	EventMembers
	EventMessages
	EventProgress
	EventDone
)

type Progress struct {
	BytesRead  int64
	BytesTotal int64
	Messages   int
}

type Summary struct {
	Members  int
	Messages int
}

type Event struct {
	Kind     EventKind
	Meta     *model.Meta
	Sources  []model.Source // only on Meta events from archive streams
	Members  []model.Member
	Messages []model.Message
	Progress *Progress
	Done     *Summary
}

type Options struct {
	BatchSize int
	// Progress, when set, is called at every batch boundary. It must not
	// block; the stream completes whether or not an observer is present.
	Progress func(Progress)
}

// Parser is the capability every registered format provides.
type Parser interface {
	Parse(path string, opts Options) (Stream, error)
}

// Stream is a pull-based event sequence. Next returns io.EOF after the
// terminal Done event; any other error terminates the sequence.
type Stream interface {
	Next() (Event, error)
	Close() error
}

// envelope is the per-format part of a stream: it has opened the file,
// extracted the meta header, and positioned a decoder at the start of
// the messages array.
type envelope interface {
	meta() model.Meta
	sources() []model.Source
	// next returns the following raw record, or io.EOF at the end of
	// the messages array. Any other error is a malformed-source failure.
	next() (record, error)
	bytesRead() int64
	bytesTotal() int64
	close() error
}

// stream drives the shared batching state machine over an envelope.
type stream struct {
	env   envelope
	opts  Options
	queue []Event

	metaSent  bool
	exhausted bool
	doneSent  bool
	failed    error

	members  map[string]*model.Member
	order    []string // member emit order (first seen)
	msgCount int
}

func newStream(env envelope, opts Options) *stream {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &stream{
		env:     env,
		opts:    opts,
		members: make(map[string]*model.Member),
	}
}

func (s *stream) Next() (Event, error) {
	if s.failed != nil {
		return Event{}, s.failed
	}
	if len(s.queue) > 0 {
		return s.pop(), nil
	}
	if s.doneSent {
		return Event{}, io.EOF
	}
	if !s.metaSent {
		s.metaSent = true
		m := s.env.meta()
		return Event{Kind: EventMeta, Meta: &m, Sources: s.env.sources()}, nil
	}
	if err := s.fill(); err != nil {
		s.failed = err
		return Event{}, err
	}
	return s.pop(), nil
}

// fill reads up to one batch of records, normalizes them, and queues the
// resulting events.
func (s *stream) fill() error {
	var batch []model.Message
	for len(batch) < s.opts.BatchSize {
		rec, err := s.env.next()
		if err == io.EOF {
			s.exhausted = true
			break
		}
		if err != nil {
			return fmt.Errorf("malformed source: %w", err)
		}
		msg, ok := s.normalize(rec)
		if !ok {
			continue // record-level defect, dropped
		}
		batch = append(batch, msg)
	}

	if len(batch) > 0 {
		s.msgCount += len(batch)
		p := Progress{
			BytesRead:  s.env.bytesRead(),
			BytesTotal: s.env.bytesTotal(),
			Messages:   s.msgCount,
		}
		s.queue = append(s.queue,
			Event{Kind: EventMembers, Members: s.snapshotMembers()},
			Event{Kind: EventMessages, Messages: batch},
			Event{Kind: EventProgress, Progress: &p},
		)
		if s.opts.Progress != nil {
			s.opts.Progress(p)
		}
	}
	if s.exhausted {
		s.doneSent = true
		s.queue = append(s.queue, Event{
			Kind: EventDone,
			Done: &Summary{Members: len(s.order), Messages: s.msgCount},
		})
	}
	return nil
}

func (s *stream) pop() Event {
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev
}

func (s *stream) snapshotMembers() []model.Member {
	out := make([]model.Member, 0, len(s.order))
	for _, id := range s.order {
		m := s.members[id]
		cp := model.Member{PlatformID: m.PlatformID, Name: m.Name}
		if len(m.Aliases) > 0 {
			cp.Aliases = append([]string(nil), m.Aliases...)
		}
		out = append(out, cp)
	}
	return out
}

func (s *stream) Close() error {
	return s.env.close()
}

// countingReader tracks how many bytes the decoder has consumed, for
// progress reporting.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// openDocument opens path and returns a decoder over a counting reader
// plus the file size.
func openDocument(path string) (*os.File, *countingReader, *json.Decoder, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	cr := &countingReader{r: bufio.NewReaderSize(f, 64*1024)}
	return f, cr, json.NewDecoder(cr), info.Size(), nil
}

// expectDelim consumes one token and checks it is the given delimiter.
func expectDelim(dec *json.Decoder, d rune) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || rune(delim) != d {
		return fmt.Errorf("expected %q, got %v", d, t)
	}
	return nil
}

// skipValue discards the next JSON value.
func skipValue(dec *json.Decoder) error {
	var raw json.RawMessage
	return dec.Decode(&raw)
}

// arrayNext decodes the next element of the array the decoder is inside,
// consuming the closing bracket and returning io.EOF at the end.
func arrayNext(dec *json.Decoder, v any) error {
	if !dec.More() {
		if _, err := dec.Token(); err != nil && err != io.EOF {
			return err
		}
		return io.EOF
	}
	return dec.Decode(v)
}
