// Package format holds the catalog of known export formats and the
// sniffer that matches input files against it.
package format

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mama165/chatlab/internal/model"
	"github.com/mama165/chatlab/internal/parse"
)

// sniffLimit caps how much of a file the sniffer reads. Every format's
// signature fields must appear within this prefix.
const sniffLimit = 8 * 1024

var ErrUnrecognizedFormat = errors.New("unrecognized export format")

// Descriptor describes one known export format. Descriptors are immutable
// after registration; lower Priority wins when signatures overlap.
type Descriptor struct {
	ID             string
	Name           string
	Platform       model.Platform
	Priority       int
	Extensions     []string // matched as case-insensitive suffixes
	Header         *regexp.Regexp
	RequiredFields []string // top-level field names probed as raw substrings
	Parser         parse.Parser
}

// Registry is an ordered collection of format descriptors.
type Registry struct {
	descriptors []*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a descriptor, keeping the collection sorted by priority.
// Registration order is preserved among equal priorities.
func (r *Registry) Register(d *Descriptor) {
	r.descriptors = append(r.descriptors, d)
	sort.SliceStable(r.descriptors, func(i, j int) bool {
		return r.descriptors[i].Priority < r.descriptors[j].Priority
	})
}

// Descriptors returns the registered descriptors in priority order.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Detect matches a file against the registry and returns the first
// descriptor, in priority order, that passes all declared checks.
// Only a bounded prefix of the file is read.
func (r *Registry) Detect(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prefix := make([]byte, sniffLimit)
	n, err := f.Read(prefix)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	prefix = prefix[:n]

	lower := strings.ToLower(path)
	for _, d := range r.descriptors {
		if !matchExtension(lower, d.Extensions) {
			continue
		}
		if d.Header != nil && !d.Header.Match(prefix) {
			continue
		}
		if !hasRequiredFields(prefix, d.RequiredFields) {
			continue
		}
		return d, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnrecognizedFormat)
}

// ParserFor returns the parser bound to the matching descriptor.
func (r *Registry) ParserFor(path string) (parse.Parser, error) {
	d, err := r.Detect(path)
	if err != nil {
		return nil, err
	}
	return d.Parser, nil
}

func matchExtension(lowerPath string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return false
}

// hasRequiredFields probes the raw prefix for `"field"` occurrences.
// This is a substring check, not a parse: required fields must appear
// early enough to fall inside the sniff window.
func hasRequiredFields(prefix []byte, fields []string) bool {
	for _, field := range fields {
		if !strings.Contains(string(prefix), `"`+field+`"`) {
			return false
		}
	}
	return true
}

// Default builds the registry of shipped formats. The archive format
// carries the lowest priority value: its signature is the most specific
// and must win over the generic JSON export formats.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&Descriptor{
		ID:             "chatlab",
		Name:           "ChatLab archive",
		Platform:       model.PlatformChatLab,
		Priority:       0,
		Extensions:     []string{".chatlab.json", ".json"},
		Header:         regexp.MustCompile(`"chatlab"\s*:\s*\{`),
		RequiredFields: []string{"chatlab", "meta", "messages"},
		Parser:         parse.NewChatLabParser(),
	})
	r.Register(&Descriptor{
		ID:             "qqexport",
		Name:           "QQ history export",
		Platform:       model.PlatformQQ,
		Priority:       10,
		Extensions:     []string{".json"},
		Header:         regexp.MustCompile(`"chatName"\s*:`),
		RequiredFields: []string{"chatName", "messages"},
		Parser:         parse.NewQQParser(),
	})
	r.Register(&Descriptor{
		ID:             "memotrace",
		Name:           "MemoTrace WeChat export",
		Platform:       model.PlatformWeChat,
		Priority:       20,
		Extensions:     []string{".json"},
		Header:         regexp.MustCompile(`"info"\s*:\s*\{`),
		RequiredFields: []string{"info", "messages"},
		Parser:         parse.NewMemoTraceParser(),
	})
	return r
}
