package downloader

import (
	"fmt"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/melodyforge/internal/models"
)

// ID3Tagger writes title and artist frames into mp3 files.
type ID3Tagger struct{}

func (ID3Tagger) Tag(path string, track models.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("id3 open error: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if track.Title != "" {
		tag.SetTitle(track.Title)
	}
	if track.Artist != "" {
		tag.SetArtist(track.Artist)
	}
	return tag.Save()
}
