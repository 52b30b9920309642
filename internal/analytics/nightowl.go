package analytics

import (
	"sort"
	"time"
)

// The day boundary for overnight analyses sits at 05:00: messages
// before five in the morning belong to the previous day.
const dayShiftHours = 5

// Champion score weights.
const (
	weightNightMessage = 1
	weightLastSpeaker  = 10
	weightStreak       = 20
)

type NightOwlStat struct {
	PlatformID string
	Name       string

	NightCount int
	// Buckets counts messages in the hours 23, 0, 1, 2 and 3-4.
	Buckets [5]int
	Tier    string

	LastSpeakerDays  int
	AvgLastClock     string
	LatestClock      string
	FirstSpeakerDays int
	AvgFirstClock    string
	EarliestClock    string

	LongestStreak int
	StreakCurrent bool

	Score int
}

type NightOwlResult struct {
	DaysObserved int
	// Champions ranks members by composite score, zero scores omitted.
	Champions []NightOwlStat
}

type dayEdge struct {
	senderID string
	minutes  int // since the 05:00 shift
}

// NightOwls analyzes overnight activity: night-hour volume and tiers,
// daily first/last speakers, consecutive night streaks and a composite
// champion ranking.
func (e *Engine) NightOwls(p Params) (*NightOwlResult, error) {
	rows, err := e.textMessages(p)
	if err != nil {
		return nil, err
	}
	loc := p.loc()

	stats := make(map[string]*NightOwlStat)
	var order []string
	get := func(id, name string) *NightOwlStat {
		s, ok := stats[id]
		if !ok {
			s = &NightOwlStat{PlatformID: id, Name: name}
			stats[id] = s
			order = append(order, id)
		}
		return s
	}

	days := make(map[int]struct{})
	firstOfDay := make(map[int]dayEdge)
	lastOfDay := make(map[int]dayEdge)
	nightDays := make(map[string]map[int]struct{})

	for _, r := range rows {
		t := time.Unix(r.Ts, 0).In(loc)
		day := dayOrdinal(t.Add(-dayShiftHours * time.Hour))
		days[day] = struct{}{}

		s := get(r.PlatformID, r.Name)
		mins := shiftedMinutes(t)
		edge := dayEdge{senderID: r.PlatformID, minutes: mins}
		if _, ok := firstOfDay[day]; !ok {
			firstOfDay[day] = edge
		}
		lastOfDay[day] = edge // rows are in ascending order

		if bucket, night := nightBucket(t.Hour()); night {
			s.NightCount++
			s.Buckets[bucket]++
			nd, ok := nightDays[r.PlatformID]
			if !ok {
				nd = make(map[int]struct{})
				nightDays[r.PlatformID] = nd
			}
			nd[day] = struct{}{}
		}
	}

	// first/last speaker tallies with average and extreme clock times
	lastSums := make(map[string]int)
	firstSums := make(map[string]int)
	latest := make(map[string]int)
	earliest := make(map[string]int)
	for _, edge := range lastOfDay {
		s := stats[edge.senderID]
		s.LastSpeakerDays++
		lastSums[edge.senderID] += edge.minutes
		if edge.minutes > latest[edge.senderID] {
			latest[edge.senderID] = edge.minutes
		}
	}
	for _, edge := range firstOfDay {
		s := stats[edge.senderID]
		s.FirstSpeakerDays++
		firstSums[edge.senderID] += edge.minutes
		if cur, ok := earliest[edge.senderID]; !ok || edge.minutes < cur {
			earliest[edge.senderID] = edge.minutes
		}
	}

	today := dayOrdinal(time.Unix(p.now(), 0).In(loc).Add(-dayShiftHours * time.Hour))
	for _, id := range order {
		s := stats[id]
		s.Tier = nightTier(s.NightCount)
		if s.LastSpeakerDays > 0 {
			s.AvgLastClock = clockString(lastSums[id] / s.LastSpeakerDays)
			s.LatestClock = clockString(latest[id])
		}
		if s.FirstSpeakerDays > 0 {
			s.AvgFirstClock = clockString(firstSums[id] / s.FirstSpeakerDays)
			s.EarliestClock = clockString(earliest[id])
		}
		s.LongestStreak, s.StreakCurrent = nightStreak(nightDays[id], today)
		s.Score = s.NightCount*weightNightMessage +
			s.LastSpeakerDays*weightLastSpeaker +
			s.LongestStreak*weightStreak
	}

	result := &NightOwlResult{DaysObserved: len(days)}
	for _, id := range order {
		if stats[id].Score > 0 {
			result.Champions = append(result.Champions, *stats[id])
		}
	}
	sort.SliceStable(result.Champions, func(i, j int) bool {
		return result.Champions[i].Score > result.Champions[j].Score
	})
	return result, nil
}

// nightBucket maps an hour to its bucket index within the night window
// 23:00-04:59.
func nightBucket(hour int) (int, bool) {
	switch {
	case hour == 23:
		return 0, true
	case hour == 0:
		return 1, true
	case hour == 1:
		return 2, true
	case hour == 2:
		return 3, true
	case hour == 3 || hour == 4:
		return 4, true
	}
	return 0, false
}

func nightTier(count int) string {
	switch {
	case count == 0:
		return "none"
	case count <= 20:
		return "light"
	case count <= 50:
		return "casual"
	case count <= 100:
		return "regular"
	case count <= 200:
		return "frequent"
	case count <= 500:
		return "heavy"
	}
	return "extreme"
}

// nightStreak finds the longest run of consecutive shifted days with
// night activity. The streak is current when its last day is today or
// yesterday.
func nightStreak(days map[int]struct{}, today int) (int, bool) {
	if len(days) == 0 {
		return 0, false
	}
	sorted := make([]int, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Ints(sorted)

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	last := sorted[len(sorted)-1]
	return longest, last == today || last == today-1
}
