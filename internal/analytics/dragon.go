package analytics

import (
	"sort"
	"time"
)

type DragonStat struct {
	PlatformID string
	Name       string
	Days       int
	// Rate is Days over the total distinct days observed.
	Rate float64
}

type DragonResult struct {
	TotalDays int
	Ranking   []DragonStat
}

// DragonKings awards, for every local calendar day, one "dragon day" to
// each member holding that day's maximum message count.
func (e *Engine) DragonKings(p Params) (*DragonResult, error) {
	rows, err := e.textMessages(p)
	if err != nil {
		return nil, err
	}
	loc := p.loc()

	type dayCounts struct {
		counts map[string]int
	}
	days := make(map[int]*dayCounts)
	names := make(map[string]string)
	var memberOrder []string

	for _, r := range rows {
		day := dayOrdinal(time.Unix(r.Ts, 0).In(loc))
		dc, ok := days[day]
		if !ok {
			dc = &dayCounts{counts: make(map[string]int)}
			days[day] = dc
		}
		if _, ok := names[r.PlatformID]; !ok {
			names[r.PlatformID] = r.Name
			memberOrder = append(memberOrder, r.PlatformID)
		}
		dc.counts[r.PlatformID]++
	}

	dragonDays := make(map[string]int)
	for _, dc := range days {
		max := 0
		for _, n := range dc.counts {
			if n > max {
				max = n
			}
		}
		for id, n := range dc.counts {
			if n == max {
				dragonDays[id]++
			}
		}
	}

	result := &DragonResult{TotalDays: len(days)}
	for _, id := range memberOrder {
		n := dragonDays[id]
		if n == 0 {
			continue
		}
		s := DragonStat{PlatformID: id, Name: names[id], Days: n}
		if result.TotalDays > 0 {
			s.Rate = float64(n) / float64(result.TotalDays)
		}
		result.Ranking = append(result.Ranking, s)
	}
	sort.SliceStable(result.Ranking, func(i, j int) bool {
		return result.Ranking[i].Days > result.Ranking[j].Days
	})
	return result, nil
}
