package ui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func browserDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestBrowserListsPlayableFiles(t *testing.T) {
	dir := browserDir(t, "a.wav", "b.txt", "c.m3u", "d.FLAC")
	m := NewBrowser(dir)
	if m.HasError() {
		t.Fatalf("unexpected error: %v", m.Error())
	}
	if got := len(m.list.Items()); got != 3 {
		t.Fatalf("got %d items, want 3", got)
	}
}

func TestBrowserSelection(t *testing.T) {
	dir := browserDir(t, "song.wav")
	m := NewBrowser(dir)

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	res := model.(BrowserModel).Result()
	if res.Cancelled || res.Path != filepath.Join(dir, "song.wav") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestBrowserCancel(t *testing.T) {
	m := NewBrowser(browserDir(t, "song.wav"))
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !model.(BrowserModel).Result().Cancelled {
		t.Fatal("expected cancelled result")
	}
}

func TestBrowserEmptyDirectory(t *testing.T) {
	m := NewBrowser(browserDir(t, "notes.txt"))
	if !m.HasError() {
		t.Fatal("expected error for directory without playable files")
	}
}

func TestBrowserMissingDirectory(t *testing.T) {
	m := NewBrowser(filepath.Join(t.TempDir(), "missing"))
	if !m.HasError() {
		t.Fatal("expected error for missing directory")
	}
}
