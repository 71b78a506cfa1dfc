package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"WinamaxFeed/internal/model"
)

func TestLoadSnapshotFileMissing(t *testing.T) {
	snap, err := LoadSnapshotFile(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadSnapshotFile: %v", err)
	}
	if snap.MessageCount != 0 || len(snap.Messages) != 0 {
		t.Errorf("missing file should yield an empty snapshot, got %#v", snap)
	}

	_, exists, err := StatSnapshotFile(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || exists {
		t.Errorf("StatSnapshotFile = (exists=%v, err=%v), want (false, nil)", exists, err)
	}
}

func TestLoadSnapshotFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"messages": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshotFile(path); err == nil {
		t.Fatal("expected an error for a truncated file")
	}
}

func TestSaveAndLoadSnapshotFile(t *testing.T) {
	ev, err := model.NewRawEvent(time.Date(2025, 10, 20, 18, 0, 0, 0, time.UTC), model.EventWebsocketMessage,
		map[string]string{"raw": `42["m",{"odds":{"1":1.5}}]`})
	if err != nil {
		t.Fatal(err)
	}
	cdp := model.RawEvent{
		Timestamp: json.RawMessage(`1760983200.5`),
		Method:    "Network.webSocketFrameReceived",
		Params:    json.RawMessage(`{"requestId":"1"}`),
	}
	in := &model.Snapshot{
		URL:          "https://www.winamax.fr/paris-sportifs/sports/1",
		Timestamp:    "2025-10-20T18:00:05Z",
		MessageCount: 2,
		Messages:     []model.RawEvent{ev, cdp},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "capture.json")
	if err := SaveSnapshotFile(path, in); err != nil {
		t.Fatalf("SaveSnapshotFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"url\": ") {
		t.Errorf("file is not indented with two spaces:\n%s", data)
	}
	if strings.Contains(string(data), `<`) || !strings.Contains(string(data), `42[\"m\"`) {
		t.Errorf("unexpected escaping in file:\n%s", data)
	}

	out, err := LoadSnapshotFile(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFile: %v", err)
	}
	if out.URL != in.URL || out.Timestamp != in.Timestamp || out.MessageCount != 2 || len(out.Messages) != 2 {
		t.Fatalf("loaded snapshot = %#v", out)
	}
	if out.Messages[1].Method != cdp.Method || out.Messages[1].Time() != "1760983200.5" {
		t.Errorf("cdp entry not preserved: %#v", out.Messages[1])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}

	version, exists, err := StatSnapshotFile(path)
	if err != nil || !exists || version.Size != int64(len(data)) {
		t.Errorf("StatSnapshotFile = (%+v, %v, %v)", version, exists, err)
	}
}

func TestFingerprintStable(t *testing.T) {
	msgs := []model.RawEvent{{Event: model.EventWebsocketOpen, Data: json.RawMessage(`{"url":"wss://x"}`)}}
	a, _, err := Fingerprint(msgs)
	if err != nil {
		t.Fatal(err)
	}
	b, _, _ := Fingerprint(msgs)
	if a != b || len(a) != 64 {
		t.Errorf("fingerprints %q and %q", a, b)
	}
	c, _, _ := Fingerprint(nil)
	if c == a {
		t.Error("different logs must not share a fingerprint")
	}
}

func TestAdminDSNFor(t *testing.T) {
	tests := []struct {
		dsn       string
		wantName  string
		wantAdmin string
	}{
		{"postgres://u:p@localhost:5432/winamax?sslmode=disable", "winamax", "postgres://u:p@localhost:5432/postgres?sslmode=disable"},
		{"postgres://u:p@localhost:5432/postgres", "", ""},
		{"postgres://u:p@localhost:5432/", "", ""},
	}
	for _, tt := range tests {
		name, admin, err := adminDSNFor(tt.dsn)
		if err != nil {
			t.Fatalf("adminDSNFor(%q): %v", tt.dsn, err)
		}
		if name != tt.wantName || admin != tt.wantAdmin {
			t.Errorf("adminDSNFor(%q) = (%q, %q), want (%q, %q)", tt.dsn, name, admin, tt.wantName, tt.wantAdmin)
		}
	}
}
