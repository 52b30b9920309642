package analytics

import (
	"sort"
)

type DivingStat struct {
	PlatformID string
	Name       string
	LastTS     int64
	SilentSecs int64
}

type DivingResult struct {
	// Ranking orders members by last-message timestamp ascending: the
	// longest-silent member comes first.
	Ranking []DivingStat
}

// Diving ranks members by how long they have been silent.
func (e *Engine) Diving(p Params) (*DivingResult, error) {
	rows, err := e.textMessages(p)
	if err != nil {
		return nil, err
	}

	last := make(map[string]int64)
	names := make(map[string]string)
	var order []string
	for _, r := range rows {
		if _, ok := last[r.PlatformID]; !ok {
			names[r.PlatformID] = r.Name
			order = append(order, r.PlatformID)
		}
		last[r.PlatformID] = r.Ts // ascending scan, last write wins
	}

	now := p.now()
	result := &DivingResult{}
	for _, id := range order {
		result.Ranking = append(result.Ranking, DivingStat{
			PlatformID: id,
			Name:       names[id],
			LastTS:     last[id],
			SilentSecs: now - last[id],
		})
	}
	sort.SliceStable(result.Ranking, func(i, j int) bool {
		return result.Ranking[i].LastTS < result.Ranking[j].LastTS
	})
	return result, nil
}
