package format

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestDetectQQExport(t *testing.T) {
	path := writeFile(t, "friends.json",
		`{"chatName":"老友群","chatType":"group","messages":[]}`)

	d, err := Default().Detect(path)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if d.ID != "qqexport" {
		t.Errorf("detected %s, want qqexport", d.ID)
	}
}

func TestDetectMemoTrace(t *testing.T) {
	path := writeFile(t, "wechat.json",
		`{"info":{"name":"家人","type":"group"},"messages":[]}`)

	d, err := Default().Detect(path)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if d.ID != "memotrace" {
		t.Errorf("detected %s, want memotrace", d.ID)
	}
}

func TestDetectArchiveWinsOverGenericJSON(t *testing.T) {
	// an archive also satisfies a generic .json extension; priority
	// order must pick the archive descriptor
	path := writeFile(t, "out.json",
		`{"chatlab":{"version":"1.0","exportedAt":1700000000,"generator":"chatlab"},`+
			`"meta":{"name":"x","platform":"qq","type":"group","sources":[]},`+
			`"members":[],"messages":[]}`)

	d, err := Default().Detect(path)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if d.ID != "chatlab" {
		t.Errorf("detected %s, want chatlab", d.ID)
	}
}

func TestDetectRejectsWrongExtension(t *testing.T) {
	path := writeFile(t, "export.txt", `{"chatName":"x","messages":[]}`)

	_, err := Default().Detect(path)
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("err = %v, want ErrUnrecognizedFormat", err)
	}
}

func TestDetectRejectsUnknownContent(t *testing.T) {
	path := writeFile(t, "other.json", `{"something":"else"}`)

	_, err := Default().Detect(path)
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("err = %v, want ErrUnrecognizedFormat", err)
	}
}

func TestRegisterOrdersByPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&Descriptor{ID: "b", Priority: 20})
	r.Register(&Descriptor{ID: "a", Priority: 5})
	r.Register(&Descriptor{ID: "c", Priority: 20})

	ds := r.Descriptors()
	if ds[0].ID != "a" {
		t.Errorf("first descriptor = %s, want a", ds[0].ID)
	}
	// equal priorities keep registration order
	if ds[1].ID != "b" || ds[2].ID != "c" {
		t.Errorf("order = %s,%s, want b,c", ds[1].ID, ds[2].ID)
	}
}
