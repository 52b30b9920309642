package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mama165/chatlab/internal/archive"
	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/model"
	"github.com/mama165/chatlab/internal/parse"
	"github.com/mama165/chatlab/internal/store"
)

type Params struct {
	Paths     []string
	Name      string // output conversation name; defaults to the first file's
	OutputDir string
	// Resolutions are keyed by conflict id. Keep-first and keep-second
	// drop the losing variant; keep-both leaves both variants in place
	// (their fingerprints differ, so dedup never collapses them).
	Resolutions map[string]Resolution
	Store       *store.DB // when set, the archive is re-parsed and imported
}

type Result struct {
	OutputPath string
	SessionID  string
	Members    int
	Messages   int
}

// Merge re-parses all inputs, unifies members, applies conflict
// resolutions, dedups by fingerprint, sorts by timestamp and writes the
// result as a ChatLab archive. Partial output files are not cleaned up
// on failure.
func Merge(reg *format.Registry, p Params) (*Result, error) {
	files, err := parseAll(reg, p.Paths)
	if err != nil {
		return nil, err
	}

	// member unification: first-seen name wins, later distinct names
	// become aliases
	unified := make(map[string]*model.Member)
	var memberOrder []string
	for _, f := range files {
		for _, m := range f.corpus.Members {
			u, ok := unified[m.PlatformID]
			if !ok {
				cp := model.Member{PlatformID: m.PlatformID, Name: m.Name}
				cp.Aliases = append(cp.Aliases, m.Aliases...)
				unified[m.PlatformID] = &cp
				memberOrder = append(memberOrder, m.PlatformID)
				continue
			}
			for _, name := range append([]string{m.Name}, m.Aliases...) {
				addAlias(u, name)
			}
		}
	}

	drop := dropSet(detectConflicts(files), p.Resolutions)

	var merged []model.Message
	kept := make(map[fingerprint]struct{})
	for _, f := range files {
		for _, m := range f.corpus.Messages {
			fp := printOf(m)
			if _, dropped := drop[fp]; dropped {
				continue
			}
			if _, dup := kept[fp]; dup {
				continue
			}
			kept[fp] = struct{}{}
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })

	corpus := &model.Corpus{
		Meta: model.Meta{
			Name:     p.Name,
			Platform: resultPlatform(files),
			ChatType: files[0].corpus.Meta.ChatType,
		},
		Messages: merged,
	}
	if corpus.Meta.Name == "" {
		corpus.Meta.Name = files[0].corpus.Meta.Name
	}
	if corpus.Meta.Name == "" {
		corpus.Meta.Name = "merged chat"
	}
	for _, id := range memberOrder {
		corpus.Members = append(corpus.Members, *unified[id])
	}
	for _, f := range files {
		corpus.Sources = append(corpus.Sources, model.Source{
			Filename:     filepath.Base(f.path),
			Platform:     f.corpus.Meta.Platform,
			MessageCount: len(f.corpus.Messages),
		})
	}

	dir := p.OutputDir
	if dir == "" {
		dir = archive.DefaultOutputDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	outPath := archive.OutputPath(dir, corpus.Meta.Name, time.Now())
	if err := archive.Write(corpus, outPath); err != nil {
		return nil, err
	}

	res := &Result{
		OutputPath: outPath,
		Members:    len(corpus.Members),
		Messages:   len(corpus.Messages),
	}

	if p.Store != nil {
		parser, err := reg.ParserFor(outPath)
		if err != nil {
			return nil, fmt.Errorf("re-sniff archive: %w", err)
		}
		reparsed, err := parse.ParseFile(parser, outPath, parse.Options{})
		if err != nil {
			return nil, fmt.Errorf("re-parse archive: %w", err)
		}
		sessionID, err := p.Store.Import(reparsed)
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		res.SessionID = sessionID
	}
	return res, nil
}

func addAlias(m *model.Member, name string) {
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

// dropSet maps applied resolutions to the fingerprints of losing
// variants.
func dropSet(conflicts []Conflict, resolutions map[string]Resolution) map[fingerprint]struct{} {
	drop := make(map[fingerprint]struct{})
	for _, c := range conflicts {
		r, ok := resolutions[c.ID]
		if !ok {
			continue
		}
		switch r {
		case KeepFirst:
			drop[fingerprint{ts: c.Timestamp, sender: c.SenderID, length: c.SecondLen}] = struct{}{}
		case KeepSecond:
			drop[fingerprint{ts: c.Timestamp, sender: c.SenderID, length: c.FirstLen}] = struct{}{}
		case KeepBoth:
			// both variants survive dedup on their own
		}
	}
	return drop
}

func resultPlatform(files []parsedFile) model.Platform {
	p := files[0].corpus.Meta.Platform
	for _, f := range files[1:] {
		if f.corpus.Meta.Platform != p {
			return model.PlatformMixed
		}
	}
	return p
}
