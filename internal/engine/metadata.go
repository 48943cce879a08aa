package engine

import (
	"os"
	"path/filepath"

	"github.com/dhowden/tag"
)

// TrackInfo is the tag metadata of a local audio file.
type TrackInfo struct {
	Path   string
	Title  string
	Artist string
	Album  string
	Year   int
	Track  int
}

// ReadTrackInfo reads tag metadata from the file at path. Files without
// readable tags yield an info with the file name as title.
func ReadTrackInfo(path string) (*TrackInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &TrackInfo{Path: path, Title: filepath.Base(path)}

	m, err := tag.ReadFrom(f)
	if err != nil {
		return info, nil
	}

	if title := m.Title(); title != "" {
		info.Title = title
	}
	info.Artist = m.Artist()
	info.Album = m.Album()
	info.Year = m.Year()
	info.Track, _ = m.Track()
	return info, nil
}
