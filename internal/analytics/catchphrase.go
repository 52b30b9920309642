package analytics

import (
	"sort"
	"unicode/utf8"

	"github.com/mama165/chatlab/internal/store"
)

const phrasesPerMember = 5

type Phrase struct {
	Content string
	Count   int
}

type CatchphraseStat struct {
	PlatformID string
	Name       string
	// Total is the combined volume of the member's top phrases.
	Total   int
	Phrases []Phrase
}

type CatchphraseResult struct {
	Ranking []CatchphraseStat
}

// Catchphrases ranks each member's most repeated distinct contents.
// Contents shorter than two runes are ignored.
func (e *Engine) Catchphrases(p Params) (*CatchphraseResult, error) {
	counts, err := e.db.ContentCounts(p.SessionID, store.MessageFilter{
		Since: p.Since,
		Until: p.Until,
	})
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*CatchphraseStat)
	var order []string
	// counts arrive sorted by frequency, so the first five rows per
	// member are that member's top phrases
	for _, c := range counts {
		if utf8.RuneCountInString(c.Content) < 2 {
			continue
		}
		s, ok := stats[c.PlatformID]
		if !ok {
			s = &CatchphraseStat{PlatformID: c.PlatformID, Name: c.Name}
			stats[c.PlatformID] = s
			order = append(order, c.PlatformID)
		}
		if len(s.Phrases) == phrasesPerMember {
			continue
		}
		s.Phrases = append(s.Phrases, Phrase{Content: c.Content, Count: c.Count})
		s.Total += c.Count
	}

	result := &CatchphraseResult{}
	for _, id := range order {
		result.Ranking = append(result.Ranking, *stats[id])
	}
	sort.SliceStable(result.Ranking, func(i, j int) bool {
		return result.Ranking[i].Total > result.Ranking[j].Total
	})
	return result, nil
}
