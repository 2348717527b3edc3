package media

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIsSupportedExtMatchesDecoders(t *testing.T) {
	for _, ext := range []string{".mp3", ".WAV", ".flac", ".ogg"} {
		if !IsSupportedExt(ext) {
			t.Fatalf("expected %s to be supported", ext)
		}
	}
	for _, ext := range []string{".aac", ".m4a", ".txt"} {
		if IsSupportedExt(ext) {
			t.Fatalf("expected %s to be unsupported", ext)
		}
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveInputSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	touch(t, path)

	got, err := ResolveInput(path)
	if err != nil {
		t.Fatalf("ResolveInput() error = %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "take.wav" {
		t.Fatalf("ResolveInput() = %v", got)
	}
}

func TestResolveInputDirectorySorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.ogg"))
	touch(t, filepath.Join(dir, "a.mp3"))
	touch(t, filepath.Join(dir, "notes.txt"))

	got, err := ResolveInput(dir)
	if err != nil {
		t.Fatalf("ResolveInput() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "b.ogg")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ResolveInput() = %v, want %v", got, want)
	}
}

func TestResolveInputRejectsUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.m4a")
	touch(t, path)

	if _, err := ResolveInput(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestResolveInputEmptyDirectory(t *testing.T) {
	if _, err := ResolveInput(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without audio")
	}
}
