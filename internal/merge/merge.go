// Package merge combines several exports of the same conversation into
// one deduplicated corpus: member unification, conflict detection,
// resolution application, fingerprint dedup and archive emission.
package merge

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/model"
	"github.com/mama165/chatlab/internal/parse"
)

var ErrFormatMismatch = errors.New("input files have different formats")

// fingerprint identifies "the same logical message" across source files.
type fingerprint struct {
	ts     int64
	sender string
	length int
}

func printOf(m model.Message) fingerprint {
	return fingerprint{ts: m.Timestamp, sender: m.SenderID, length: utf8.RuneCountInString(m.Text())}
}

// Resolution is a user decision for one detected conflict.
type Resolution int

const (
	KeepFirst Resolution = iota
	KeepSecond
	KeepBoth
)

// Conflict is a disagreement between two sources about a message that
// shares timestamp and sender but differs in content length. First/Second
// sides are ordered by content length ascending, so ids and sides are
// stable no matter which file the caller lists first.
type Conflict struct {
	ID            string
	Timestamp     int64
	SenderID      string
	SenderName    string
	FirstFile     string
	SecondFile    string
	FirstLen      int
	SecondLen     int
	FirstSnippet  string
	SecondSnippet string
}

type Report struct {
	Conflicts []Conflict
	// TotalMessages is the deduplicated count: unique fingerprints
	// across all inputs.
	TotalMessages int
}

type parsedFile struct {
	path   string
	corpus *model.Corpus
}

// CheckConflicts sniffs, fully parses and cross-checks the input files.
// All files must sniff to the identical format.
func CheckConflicts(reg *format.Registry, paths []string) (*Report, error) {
	files, err := parseAll(reg, paths)
	if err != nil {
		return nil, err
	}

	seen := make(map[fingerprint]struct{})
	for _, f := range files {
		for _, m := range f.corpus.Messages {
			seen[printOf(m)] = struct{}{}
		}
	}

	return &Report{
		Conflicts:     detectConflicts(files),
		TotalMessages: len(seen),
	}, nil
}

func parseAll(reg *format.Registry, paths []string) ([]parsedFile, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}

	descs := make([]*format.Descriptor, len(paths))
	distinct := make(map[string]string) // id -> name, insertion-ordered below
	var order []string
	for i, p := range paths {
		d, err := reg.Detect(p)
		if err != nil {
			return nil, err
		}
		descs[i] = d
		if _, ok := distinct[d.ID]; !ok {
			distinct[d.ID] = d.Name
			order = append(order, d.ID)
		}
	}
	if len(order) > 1 {
		names := make([]string, 0, len(order))
		for _, id := range order {
			names = append(names, distinct[id])
		}
		return nil, fmt.Errorf("%w: %s", ErrFormatMismatch, strings.Join(names, ", "))
	}

	files := make([]parsedFile, 0, len(paths))
	for i, p := range paths {
		c, err := parse.ParseFile(descs[i].Parser, p, parse.Options{})
		if err != nil {
			return nil, err
		}
		files = append(files, parsedFile{path: p, corpus: c})
	}
	return files, nil
}

type occurrence struct {
	file int
	msg  model.Message
}

// detectConflicts groups all messages by timestamp, then sender, then
// content length. A (timestamp, sender) group spanning two or more files
// with more than one distinct length yields one conflict per pair of
// differing-length variants sourced from different files.
func detectConflicts(files []parsedFile) []Conflict {
	byTS := make(map[int64]map[string]map[int][]occurrence)
	for i, f := range files {
		for _, m := range f.corpus.Messages {
			bySender, ok := byTS[m.Timestamp]
			if !ok {
				bySender = make(map[string]map[int][]occurrence)
				byTS[m.Timestamp] = bySender
			}
			byLen, ok := bySender[m.SenderID]
			if !ok {
				byLen = make(map[int][]occurrence)
				bySender[m.SenderID] = byLen
			}
			l := utf8.RuneCountInString(m.Text())
			byLen[l] = append(byLen[l], occurrence{file: i, msg: m})
		}
	}

	tss := make([]int64, 0, len(byTS))
	for ts := range byTS {
		tss = append(tss, ts)
	}
	sort.Slice(tss, func(i, j int) bool { return tss[i] < tss[j] })

	var conflicts []Conflict
	for _, ts := range tss {
		bySender := byTS[ts]
		senders := make([]string, 0, len(bySender))
		for s := range bySender {
			senders = append(senders, s)
		}
		sort.Strings(senders)

		for _, sender := range senders {
			byLen := bySender[sender]
			if len(byLen) < 2 {
				continue
			}
			lens := make([]int, 0, len(byLen))
			for l := range byLen {
				lens = append(lens, l)
			}
			sort.Ints(lens)

			ordinal := 0
			for i := 0; i < len(lens); i++ {
				for j := i + 1; j < len(lens); j++ {
					// lens are sorted, so the shorter variant is "first"
					a, b, ok := crossFilePair(byLen[lens[i]], byLen[lens[j]])
					if !ok {
						continue
					}
					conflicts = append(conflicts, Conflict{
						ID:            fmt.Sprintf("%d-%s-%d", ts, sender, ordinal),
						Timestamp:     ts,
						SenderID:      sender,
						SenderName:    a.msg.Name,
						FirstFile:     filepath.Base(files[a.file].path),
						SecondFile:    filepath.Base(files[b.file].path),
						FirstLen:      utf8.RuneCountInString(a.msg.Text()),
						SecondLen:     utf8.RuneCountInString(b.msg.Text()),
						FirstSnippet:  snippet(a.msg.Text()),
						SecondSnippet: snippet(b.msg.Text()),
					})
					ordinal++
				}
			}
		}
	}
	return conflicts
}

// crossFilePair picks one occurrence from each length group such that
// the two come from different source files.
func crossFilePair(as, bs []occurrence) (occurrence, occurrence, bool) {
	for _, a := range as {
		for _, b := range bs {
			if a.file != b.file {
				return a, b, true
			}
		}
	}
	return occurrence{}, occurrence{}, false
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return s
}
