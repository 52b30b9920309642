package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mama165/chatlab/internal/analytics"
	"github.com/mama165/chatlab/internal/config"
	"github.com/mama165/chatlab/internal/render"
	"github.com/mama165/chatlab/internal/store"
)

func analyzeCmd() *cobra.Command {
	var since, until, tz string

	cmd := &cobra.Command{
		Use:   "analyze <session-id> <analysis>",
		Short: "Run an analysis over a session",
		Long: `Analyses:
  repeats      repeat-chain originators, echoers and breakers
  catchphrases each member's most repeated contents
  nightowl     overnight activity champions (day boundary at 05:00)
  dragon       daily message-count leaders
  diving       members ranked by how long they have been silent
  monologue    consecutive same-sender streaks`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if tz != "" {
				cfg.Timezone = tz
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			sess, err := db.Session(args[0])
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("unknown session %s", args[0])
			}

			params := analytics.Params{SessionID: sess.ID, Location: loc}
			if params.Since, err = parseDay(since, loc, false); err != nil {
				return err
			}
			if params.Until, err = parseDay(until, loc, true); err != nil {
				return err
			}

			engine := analytics.New(db)
			styled := term.IsTerminal(int(os.Stdout.Fd()))

			switch args[1] {
			case "repeats":
				return runRepeats(engine, params, styled)
			case "catchphrases":
				return runCatchphrases(engine, params, styled)
			case "nightowl":
				return runNightOwl(engine, params, styled)
			case "dragon":
				return runDragon(engine, params, styled)
			case "diving":
				return runDiving(engine, params, styled)
			case "monologue":
				return runMonologue(engine, params, styled)
			}
			return fmt.Errorf("unknown analysis %q", args[1])
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Earliest day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Latest day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&tz, "tz", "", "Time zone override (IANA name)")

	return cmd
}

// parseDay turns YYYY-MM-DD into unix seconds; end days cover their
// final second.
func parseDay(s string, loc *time.Location, end bool) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if end {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.Unix(), nil
}

func runRepeats(e *analytics.Engine, p analytics.Params, styled bool) error {
	res, err := e.Repeat(p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(res.Members))
	for i, m := range res.Members {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), m.Name,
			strconv.Itoa(m.Originated), strconv.Itoa(m.Echoed), strconv.Itoa(m.Broken),
			strconv.Itoa(m.Total), fmt.Sprintf("%.2f%%", m.Rate*100),
		})
	}
	fmt.Print(render.Table("Repeat chains",
		[]string{"#", "MEMBER", "ORIGIN", "ECHO", "BREAK", "TOTAL", "RATE"}, rows, styled))

	top := make([][]string, 0, len(res.TopContents))
	for _, c := range res.TopContents {
		top = append(top, []string{
			c.Content, strconv.Itoa(c.MaxChain), c.Originator,
			time.Unix(c.LastSeen, 0).In(p.Location).Format("2006-01-02"),
		})
	}
	if len(top) > 0 {
		fmt.Print(render.Table("Top repeated contents",
			[]string{"CONTENT", "CHAIN", "ORIGINATOR", "LAST SEEN"}, top, styled))
	}
	return nil
}

func runCatchphrases(e *analytics.Engine, p analytics.Params, styled bool) error {
	res, err := e.Catchphrases(p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(res.Ranking))
	for i, m := range res.Ranking {
		phrases := ""
		for j, ph := range m.Phrases {
			if j > 0 {
				phrases += "  "
			}
			phrases += fmt.Sprintf("%s(%d)", ph.Content, ph.Count)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1), m.Name, strconv.Itoa(m.Total), phrases,
		})
	}
	fmt.Print(render.Table("Catchphrases",
		[]string{"#", "MEMBER", "VOLUME", "PHRASES"}, rows, styled))
	return nil
}

func runNightOwl(e *analytics.Engine, p analytics.Params, styled bool) error {
	res, err := e.NightOwls(p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(res.Champions))
	for i, m := range res.Champions {
		current := ""
		if m.StreakCurrent {
			current = "*"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1), m.Name, strconv.Itoa(m.Score), m.Tier,
			strconv.Itoa(m.NightCount), strconv.Itoa(m.LastSpeakerDays),
			m.AvgLastClock, m.LatestClock,
			strconv.Itoa(m.LongestStreak) + current,
		})
	}
	fmt.Print(render.Table("Night owls",
		[]string{"#", "MEMBER", "SCORE", "TIER", "NIGHT", "LAST-SPK", "AVG", "LATEST", "STREAK"},
		rows, styled))
	fmt.Print(render.Line("days observed", strconv.Itoa(res.DaysObserved), styled))
	return nil
}

func runDragon(e *analytics.Engine, p analytics.Params, styled bool) error {
	res, err := e.DragonKings(p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(res.Ranking))
	for i, m := range res.Ranking {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), m.Name, strconv.Itoa(m.Days),
			fmt.Sprintf("%.1f%%", m.Rate*100),
		})
	}
	fmt.Print(render.Table("Dragon kings",
		[]string{"#", "MEMBER", "DAYS", "RATE"}, rows, styled))
	fmt.Print(render.Line("days observed", strconv.Itoa(res.TotalDays), styled))
	return nil
}

func runDiving(e *analytics.Engine, p analytics.Params, styled bool) error {
	res, err := e.Diving(p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(res.Ranking))
	for i, m := range res.Ranking {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), m.Name,
			time.Unix(m.LastTS, 0).In(p.Location).Format("2006-01-02 15:04"),
			fmt.Sprintf("%.1fd", float64(m.SilentSecs)/86400),
		})
	}
	fmt.Print(render.Table("Diving",
		[]string{"#", "MEMBER", "LAST MESSAGE", "SILENT"}, rows, styled))
	return nil
}

func runMonologue(e *analytics.Engine, p analytics.Params, styled bool) error {
	res, err := e.Monologues(p)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(res.Ranking))
	for i, m := range res.Ranking {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), m.Name,
			strconv.Itoa(m.Low), strconv.Itoa(m.Mid), strconv.Itoa(m.High),
			strconv.Itoa(m.Total),
		})
	}
	fmt.Print(render.Table("Monologues",
		[]string{"#", "MEMBER", "3-4", "5-9", "10+", "TOTAL"}, rows, styled))
	if res.Longest != nil {
		fmt.Print(render.Line("longest",
			fmt.Sprintf("%s, %d messages", res.Longest.Name, res.Longest.Length), styled))
	}
	return nil
}
