package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"otc-analytics/internal/normalize"
)

func row(branch, order string, nullField string) normalize.Row {
	r := normalize.Row{}
	r.Set("CFilial", branch)
	r.Set("CPedido", order)
	if nullField != "" {
		r.SetNull(nullField)
	}
	return r
}

func TestKey(t *testing.T) {
	got := Key("webservice/senior", time.Date(2025, 6, 19, 10, 0, 0, 0, time.UTC))
	if want := "webservice_senior_2025-06-19"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestAppendSkipsExactDuplicates(t *testing.T) {
	s := NewStore(t.TempDir())
	added := s.Append("k", []normalize.Row{
		row("1", "100", ""),
		row("1", "100", ""),
		row("1", "100", "CDataGerNF"),
		row("2", "200", ""),
	})
	if added != 3 {
		t.Errorf("Append() = %d, want 3", added)
	}
	if again := s.Append("k", []normalize.Row{row("2", "200", "")}); again != 0 {
		t.Errorf("second Append() = %d, want 0", again)
	}
	if s.Count("k") != 3 {
		t.Errorf("Count() = %d, want 3", s.Count("k"))
	}
	if s.Count("other") != 0 {
		t.Errorf("Count(other) = %d, want 0", s.Count("other"))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	key := Key("webservice", time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC))

	s := NewStore(dir)
	s.Append(key, []normalize.Row{
		row("1", "100", "CDataGerNF"),
		row("2", "200", ""),
	})
	meta, err := s.Save(key, "webservice", normalize.Webservice)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if meta == nil || meta.Rows != 2 || meta.ID == "" || meta.Schema != normalize.Webservice {
		t.Fatalf("Save() meta = %+v", meta)
	}
	if _, err := os.Stat(filepath.Join(dir, key+".jsonl.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after Save()")
	}

	fresh := NewStore(dir)
	loaded, err := fresh.Load(key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil || loaded.ID != meta.ID {
		t.Errorf("Load() meta = %+v, want id %s", loaded, meta.ID)
	}

	rows := fresh.Rows(key)
	if len(rows) != 2 {
		t.Fatalf("Rows() = %d, want 2", len(rows))
	}
	if v, ok := rows[0]["CDataGerNF"]; !ok || v != nil {
		t.Errorf("explicit null lost: %v (present %v)", v, ok)
	}
	if v := rows[1]["CPedido"]; v == nil || *v != "200" {
		t.Errorf("CPedido = %v, want 200", v)
	}

	list, err := fresh.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Key != key {
		t.Errorf("List() = %+v", list)
	}
}

func TestLoadMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	meta, err := s.Load("absent")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if meta != nil || s.Count("absent") != 0 {
		t.Errorf("Load() of missing key = %+v, %d rows", meta, s.Count("absent"))
	}
}

func TestLoadSkipsInvalidLines(t *testing.T) {
	dir := t.TempDir()
	content := "{\"CFilial\":\"1\",\"CPedido\":\"100\"}\nnot json\n{\"CFilial\":\"1\",\"CPedido\":\"101\"}\n"
	if err := os.WriteFile(filepath.Join(dir, "k.jsonl"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir)
	if _, err := s.Load("k"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Count("k") != 2 {
		t.Errorf("Count() = %d, want 2", s.Count("k"))
	}
}

func TestSaveEmptyBatch(t *testing.T) {
	s := NewStore(t.TempDir())
	meta, err := s.Save("empty", "webservice", normalize.Webservice)
	if err != nil || meta != nil {
		t.Errorf("Save(empty) = %+v, %v; want nil, nil", meta, err)
	}
}
