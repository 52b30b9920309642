package analytics

import (
	"sort"
)

// minChainLength is the smallest repeat chain worth reporting.
const minChainLength = 3

const maxTopContents = 10

type RepeatMemberStat struct {
	PlatformID string
	Name       string
	Originated int // started a chain that got repeated
	Echoed     int // was the first to repeat someone
	Broken     int // ended a chain with a different message
	Total      int
	// Rate is Total as a fraction of the member's own message count.
	Rate float64
}

type RepeatContentStat struct {
	Content    string
	MaxChain   int
	Originator string
	LastSeen   int64
}

type RepeatResult struct {
	Members      []RepeatMemberStat
	ChainLengths map[int]int
	TopContents  []RepeatContentStat
}

type chainEntry struct {
	senderID string
	name     string
	ts       int64
}

// Repeat finds maximal runs of identical trimmed content where no two
// consecutive entries share a sender, and credits originators, echoers
// and breakers.
func (e *Engine) Repeat(p Params) (*RepeatResult, error) {
	rows, err := e.textMessages(p)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	credits := make(map[string]*RepeatMemberStat)
	var creditOrder []string
	addCredit := func(id, name string, f func(*RepeatMemberStat)) {
		s, ok := credits[id]
		if !ok {
			s = &RepeatMemberStat{PlatformID: id, Name: name}
			credits[id] = s
			creditOrder = append(creditOrder, id)
		}
		f(s)
	}

	hist := make(map[int]int)
	type contentStat struct {
		maxChain   int
		originator string
		lastSeen   int64
	}
	contents := make(map[string]*contentStat)
	var contentOrder []string

	var current string
	var chain []chainEntry

	flush := func(breaker *chainEntry) {
		if len(chain) < minChainLength {
			return
		}
		hist[len(chain)]++
		addCredit(chain[0].senderID, chain[0].name, func(s *RepeatMemberStat) { s.Originated++ })
		addCredit(chain[1].senderID, chain[1].name, func(s *RepeatMemberStat) { s.Echoed++ })
		if breaker != nil {
			addCredit(breaker.senderID, breaker.name, func(s *RepeatMemberStat) { s.Broken++ })
		}

		cs, ok := contents[current]
		if !ok {
			cs = &contentStat{}
			contents[current] = cs
			contentOrder = append(contentOrder, current)
		}
		if len(chain) > cs.maxChain {
			cs.maxChain = len(chain)
			cs.originator = chain[0].name
		}
		if last := chain[len(chain)-1].ts; last > cs.lastSeen {
			cs.lastSeen = last
		}
	}

	for _, r := range rows {
		text := rowText(r)
		if text == "" {
			continue
		}
		totals[r.PlatformID]++
		entry := chainEntry{senderID: r.PlatformID, name: r.Name, ts: r.Ts}

		if len(chain) > 0 && text == current {
			// same sender repeating themselves does not extend the chain
			if r.PlatformID != chain[len(chain)-1].senderID {
				chain = append(chain, entry)
			}
			continue
		}
		flush(&entry)
		current = text
		chain = []chainEntry{entry}
	}
	flush(nil)

	result := &RepeatResult{ChainLengths: hist}
	for _, id := range creditOrder {
		s := credits[id]
		s.Total = s.Originated + s.Echoed + s.Broken
		if totals[id] > 0 {
			s.Rate = float64(s.Total) / float64(totals[id])
		}
		result.Members = append(result.Members, *s)
	}
	sort.SliceStable(result.Members, func(i, j int) bool {
		return result.Members[i].Total > result.Members[j].Total
	})

	sort.SliceStable(contentOrder, func(i, j int) bool {
		return contents[contentOrder[i]].maxChain > contents[contentOrder[j]].maxChain
	})
	for _, c := range contentOrder {
		if len(result.TopContents) == maxTopContents {
			break
		}
		cs := contents[c]
		result.TopContents = append(result.TopContents, RepeatContentStat{
			Content:    c,
			MaxChain:   cs.maxChain,
			Originator: cs.originator,
			LastSeen:   cs.lastSeen,
		})
	}
	return result, nil
}
