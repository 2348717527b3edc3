package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsSupportedExt returns true if the extension is a decodable audio format.
func IsSupportedExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of decodable audio formats.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg"
}

// ResolveInput expands a play argument into the audio files to play in
// order: a single file, the entries of a playlist, or the supported files
// in a directory.
func ResolveInput(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	switch ext := filepath.Ext(path); {
	case info.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, e := range entries {
			paths = append(paths, filepath.Join(path, e.Name()))
		}
		sort.Strings(paths)
	case IsPlaylistExt(ext):
		if paths, err = ParseLocalPlaylist(path); err != nil {
			return nil, err
		}
	case IsSupportedExt(ext):
		paths = []string{path}
	default:
		return nil, fmt.Errorf("unsupported format %s (supported: %s)", ext, SupportedExtsList())
	}

	playable := FilterPlayableLocalPaths(paths)
	if len(playable) == 0 {
		return nil, fmt.Errorf("no playable files in %s", path)
	}
	return playable, nil
}
