package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/chatlab/internal/format"
	"github.com/mama165/chatlab/internal/parse"
)

func writeQQ(t *testing.T, dir, name string, records ...string) string {
	t.Helper()
	doc := `{"chatName":"测试群","chatType":"group","messages":[` +
		strings.Join(records, ",") + `]}`
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func qqMsg(uin int, name string, tsMillis int64, content string) string {
	return fmt.Sprintf(`{"uin":%d,"nickname":"%s","time":%d,"content":"%s"}`,
		uin, name, tsMillis, content)
}

const baseMS = int64(1710072000000) // 2024-03-10T12:00:00Z

func TestCheckConflictsFormatMismatch(t *testing.T) {
	dir := t.TempDir()
	qq := writeQQ(t, dir, "a.json", qqMsg(1, "a", baseMS, "hi"))

	wx := filepath.Join(dir, "b.json")
	doc := `{"info":{"name":"x","type":"group"},"messages":[]}`
	if err := os.WriteFile(wx, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := CheckConflicts(format.Default(), []string{qq, wx})
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("err = %v, want ErrFormatMismatch", err)
	}
	// the failure names both formats
	if !strings.Contains(err.Error(), "QQ history export") ||
		!strings.Contains(err.Error(), "MemoTrace WeChat export") {
		t.Errorf("error does not name both formats: %v", err)
	}
}

func TestCheckConflictsDetection(t *testing.T) {
	dir := t.TempDir()
	a := writeQQ(t, dir, "a.json",
		qqMsg(1, "阿明", baseMS, "hello"),
		qqMsg(2, "小红", baseMS+1000, "ok"),
	)
	b := writeQQ(t, dir, "b.json",
		qqMsg(1, "阿明", baseMS, "hello world"), // same second, same sender, longer
		qqMsg(2, "小红", baseMS+1000, "ok"),     // exact duplicate, no conflict
	)

	report, err := CheckConflicts(format.Default(), []string{a, b})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(report.Conflicts))
	}
	c := report.Conflicts[0]
	if c.SenderID != "1" || c.FirstLen != 5 || c.SecondLen != 11 {
		t.Errorf("conflict = %+v", c)
	}
	if c.FirstFile != "a.json" || c.SecondFile != "b.json" {
		t.Errorf("files = %s / %s", c.FirstFile, c.SecondFile)
	}
	// 3 unique fingerprints: hello, hello world, ok
	if report.TotalMessages != 3 {
		t.Errorf("total = %d, want 3", report.TotalMessages)
	}
}

func TestCheckConflictsSymmetric(t *testing.T) {
	dir := t.TempDir()
	a := writeQQ(t, dir, "a.json", qqMsg(1, "x", baseMS, "short"))
	b := writeQQ(t, dir, "b.json", qqMsg(1, "x", baseMS, "a longer variant"))

	ab, err := CheckConflicts(format.Default(), []string{a, b})
	if err != nil {
		t.Fatalf("check ab: %v", err)
	}
	ba, err := CheckConflicts(format.Default(), []string{b, a})
	if err != nil {
		t.Fatalf("check ba: %v", err)
	}
	if len(ab.Conflicts) != 1 || len(ba.Conflicts) != 1 {
		t.Fatalf("conflicts = %d / %d, want 1 / 1", len(ab.Conflicts), len(ba.Conflicts))
	}
	x, y := ab.Conflicts[0], ba.Conflicts[0]
	if x.ID != y.ID || x.Timestamp != y.Timestamp || x.SenderID != y.SenderID {
		t.Errorf("conflict identity differs: %+v vs %+v", x, y)
	}
	if x.FirstLen != y.FirstLen || x.SecondLen != y.SecondLen {
		t.Errorf("lengths depend on file order: %+v vs %+v", x, y)
	}
}

func TestCheckConflictsSameFileGroupsAreNotConflicts(t *testing.T) {
	dir := t.TempDir()
	// two different-length messages in the same second from one file:
	// ordinary same-second behavior, not a conflict
	a := writeQQ(t, dir, "a.json",
		qqMsg(1, "x", baseMS, "one"),
		qqMsg(1, "x", baseMS, "another"),
	)
	b := writeQQ(t, dir, "b.json",
		qqMsg(2, "y", baseMS+5000, "elsewhere"),
	)

	report, err := CheckConflicts(format.Default(), []string{a, b})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Conflicts) != 0 {
		t.Errorf("got %d conflicts, want 0: %+v", len(report.Conflicts), report.Conflicts)
	}
}

func TestMergeDedupIdempotence(t *testing.T) {
	dir := t.TempDir()
	a := writeQQ(t, dir, "a.json",
		qqMsg(1, "x", baseMS, "one"),
		qqMsg(1, "x", baseMS+1000, "two"),
		qqMsg(2, "y", baseMS+2000, "three"),
	)

	// merging a file with itself must yield the single-parse count
	res, err := Merge(format.Default(), Params{
		Paths:     []string{a, a},
		OutputDir: filepath.Join(dir, "out"),
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Messages != 3 {
		t.Errorf("merged %d messages, want 3", res.Messages)
	}
	if res.Members != 2 {
		t.Errorf("merged %d members, want 2", res.Members)
	}
}

func TestMergeUnifiesMembersAndSorts(t *testing.T) {
	dir := t.TempDir()
	a := writeQQ(t, dir, "a.json",
		qqMsg(1, "旧名", baseMS+5000, "later"),
	)
	b := writeQQ(t, dir, "b.json",
		qqMsg(1, "新名", baseMS, "earlier"),
		qqMsg(2, "小红", baseMS+2000, "mid"),
	)

	res, err := Merge(format.Default(), Params{
		Paths:     []string{a, b},
		OutputDir: filepath.Join(dir, "out"),
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	reg := format.Default()
	parser, err := reg.ParserFor(res.OutputPath)
	if err != nil {
		t.Fatalf("sniff output: %v", err)
	}
	merged, err := parse.ParseFile(parser, res.OutputPath, parse.Options{})
	if err != nil {
		t.Fatalf("re-parse output: %v", err)
	}

	if len(merged.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(merged.Members))
	}
	m := merged.Members[0]
	if m.Name != "旧名" || len(m.Aliases) != 1 || m.Aliases[0] != "新名" {
		t.Errorf("unified member = %+v", m)
	}

	// strictly non-decreasing timestamps
	for i := 1; i < len(merged.Messages); i++ {
		if merged.Messages[i].Timestamp < merged.Messages[i-1].Timestamp {
			t.Fatalf("messages out of order at %d", i)
		}
	}
	if merged.Messages[0].Text() != "earlier" {
		t.Errorf("first message = %q", merged.Messages[0].Text())
	}

	if len(merged.Sources) != 2 || merged.Sources[0].Filename != "a.json" {
		t.Errorf("sources = %+v", merged.Sources)
	}
}

func TestMergeAppliesResolutions(t *testing.T) {
	dir := t.TempDir()
	a := writeQQ(t, dir, "a.json", qqMsg(1, "x", baseMS, "short"))
	b := writeQQ(t, dir, "b.json", qqMsg(1, "x", baseMS, "a longer variant"))

	report, err := CheckConflicts(format.Default(), []string{a, b})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("got %d conflicts", len(report.Conflicts))
	}
	id := report.Conflicts[0].ID

	keepSecond, err := Merge(format.Default(), Params{
		Paths:       []string{a, b},
		OutputDir:   filepath.Join(dir, "out1"),
		Resolutions: map[string]Resolution{id: KeepSecond},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if keepSecond.Messages != 1 {
		t.Errorf("keep-second kept %d messages, want 1", keepSecond.Messages)
	}

	keepBoth, err := Merge(format.Default(), Params{
		Paths:       []string{a, b},
		OutputDir:   filepath.Join(dir, "out2"),
		Resolutions: map[string]Resolution{id: KeepBoth},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if keepBoth.Messages != 2 {
		t.Errorf("keep-both kept %d messages, want 2", keepBoth.Messages)
	}

	// unresolved conflicts keep both variants too, dedup is by
	// fingerprint and the lengths differ
	unresolved, err := Merge(format.Default(), Params{
		Paths:     []string{a, b},
		OutputDir: filepath.Join(dir, "out3"),
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if unresolved.Messages != 2 {
		t.Errorf("unresolved kept %d messages, want 2", unresolved.Messages)
	}
}

func TestMergeOutputNameCollision(t *testing.T) {
	dir := t.TempDir()
	a := writeQQ(t, dir, "a.json", qqMsg(1, "x", baseMS, "one"))
	b := writeQQ(t, dir, "b.json", qqMsg(1, "x", baseMS+1000, "two"))
	out := filepath.Join(dir, "out")

	first, err := Merge(format.Default(), Params{Paths: []string{a, b}, OutputDir: out})
	if err != nil {
		t.Fatalf("merge 1: %v", err)
	}
	second, err := Merge(format.Default(), Params{Paths: []string{a, b}, OutputDir: out})
	if err != nil {
		t.Fatalf("merge 2: %v", err)
	}
	if first.OutputPath == second.OutputPath {
		t.Errorf("output path collision: %s", first.OutputPath)
	}
}
