package analytics

import (
	"sort"
)

// maxMonologueGap is the largest pause, in seconds, between consecutive
// messages of one streak.
const maxMonologueGap = 300

const minMonologueLength = 3

type MonologueStat struct {
	PlatformID string
	Name       string
	Low        int // streaks of 3-4
	Mid        int // streaks of 5-9
	High       int // streaks of 10+
	Total      int
}

type LongestMonologue struct {
	PlatformID string
	Name       string
	Length     int
	Start      int64
	End        int64
}

type MonologueResult struct {
	Ranking []MonologueStat
	Longest *LongestMonologue
}

// Monologues finds runs of consecutive messages from one sender with
// gaps of at most five minutes.
func (e *Engine) Monologues(p Params) (*MonologueResult, error) {
	rows, err := e.textMessages(p)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*MonologueStat)
	var order []string
	result := &MonologueResult{}

	var curID, curName string
	var length int
	var start, lastTS int64

	finish := func() {
		if length < minMonologueLength {
			return
		}
		s, ok := stats[curID]
		if !ok {
			s = &MonologueStat{PlatformID: curID, Name: curName}
			stats[curID] = s
			order = append(order, curID)
		}
		switch {
		case length <= 4:
			s.Low++
		case length <= 9:
			s.Mid++
		default:
			s.High++
		}
		s.Total++
		if result.Longest == nil || length > result.Longest.Length {
			result.Longest = &LongestMonologue{
				PlatformID: curID,
				Name:       curName,
				Length:     length,
				Start:      start,
				End:        lastTS,
			}
		}
	}

	for _, r := range rows {
		if r.PlatformID == curID && length > 0 && r.Ts-lastTS <= maxMonologueGap {
			length++
			lastTS = r.Ts
			continue
		}
		finish()
		curID, curName = r.PlatformID, r.Name
		length = 1
		start, lastTS = r.Ts, r.Ts
	}
	finish()

	for _, id := range order {
		result.Ranking = append(result.Ranking, *stats[id])
	}
	sort.SliceStable(result.Ranking, func(i, j int) bool {
		return result.Ranking[i].Total > result.Ranking[j].Total
	})
	return result, nil
}
