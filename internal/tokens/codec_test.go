package tokens

import (
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		tt := []struct {
			name   string
			intent models.Intent
			artist string
			title  string
		}{
			{name: "plain download", intent: models.IntentDownload, artist: "Daft Punk", title: "One More Time"},
			{name: "plain similar", intent: models.IntentShowSimilar, artist: "Björk", title: "Jóga"},
			{name: "delimiter in title", intent: models.IntentDownload, artist: "A", title: "x|y"},
			{name: "legacy delimiter in artist", intent: models.IntentDownload, artist: "a|||b", title: "c"},
			{name: "percent signs", intent: models.IntentShowSimilar, artist: "100%", title: "%7C literal"},
			{name: "colon in names", intent: models.IntentDownload, artist: "dl:sim", title: "a:b"},
			{name: "empty artist", intent: models.IntentDownload, artist: "", title: "Untitled"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				token, err := Encode(tc.intent, tc.artist, tc.title)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				if len(token) > MaxTokenSize {
					t.Errorf("token %q exceeds %d bytes", token, MaxTokenSize)
				}

				got, err := Decode(token)
				if err != nil {
					t.Fatalf("Decode(%q) error = %v", token, err)
				}
				want := models.ActionToken{Intent: tc.intent, Artist: tc.artist, Title: tc.title}
				if got != want {
					t.Errorf("Decode(Encode()) = %+v, want %+v", got, want)
				}
			})
		}
	})

	t.Run("Wire Format", func(t *testing.T) {
		token, err := Encode(models.IntentDownload, "A|B", "50%")
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if token != "dl:A%7CB|50%25" {
			t.Errorf("Encode() = %q", token)
		}
	})

	t.Run("Too Long", func(t *testing.T) {
		_, err := Encode(models.IntentDownload, strings.Repeat("a", 40), strings.Repeat("b", 40))
		if !errors.Is(err, ErrTokenTooLong) {
			t.Errorf("expected ErrTokenTooLong, got %v", err)
		}
	})

	t.Run("Unknown Intent", func(t *testing.T) {
		_, err := Encode(models.Intent(9), "a", "b")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestEncodeFit(t *testing.T) {
	t.Run("Short Input Unchanged", func(t *testing.T) {
		fit, err := EncodeFit(models.IntentShowSimilar, "Muse", "Uprising")
		if err != nil {
			t.Fatalf("EncodeFit() error = %v", err)
		}
		exact, _ := Encode(models.IntentShowSimilar, "Muse", "Uprising")
		if fit != exact {
			t.Errorf("EncodeFit() = %q, want %q", fit, exact)
		}
	})

	t.Run("Trims Title First", func(t *testing.T) {
		artist := "Godspeed You! Black Emperor"
		title := "Storm: Lift Yr Skinny Fists Like Antennas to Heaven"

		token, err := EncodeFit(models.IntentDownload, artist, title)
		if err != nil {
			t.Fatalf("EncodeFit() error = %v", err)
		}
		if len(token) > MaxTokenSize {
			t.Fatalf("token has %d bytes", len(token))
		}

		got, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.Artist != artist {
			t.Errorf("artist = %q, want untouched %q", got.Artist, artist)
		}
		if !strings.HasPrefix(title, got.Title) {
			t.Errorf("title %q is not a prefix of %q", got.Title, title)
		}
	})

	t.Run("Multibyte Boundaries", func(t *testing.T) {
		token, err := EncodeFit(models.IntentDownload, strings.Repeat("ö", 40), strings.Repeat("ü", 40))
		if err != nil {
			t.Fatalf("EncodeFit() error = %v", err)
		}
		got, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.Title != "" {
			t.Errorf("expected title trimmed away, got %q", got.Title)
		}
		if strings.ContainsRune(got.Artist, '�') {
			t.Errorf("artist split inside a rune: %q", got.Artist)
		}
	})
}

func TestDecodeRejectsForeignTokens(t *testing.T) {
	tt := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "legacy download scheme", token: "download_Daft Punk|||One More Time"},
		{name: "legacy similar scheme", token: "similar_Daft Punk|||One More Time"},
		{name: "no prefix", token: "Daft Punk|One More Time"},
		{name: "unknown prefix", token: "buy:a|b"},
		{name: "missing delimiter", token: "dl:abc"},
		{name: "extra delimiter", token: "dl:a|b|c"},
		{name: "bad escape", token: "dl:a%41|b"},
		{name: "truncated escape", token: "dl:a|b%7"},
		{name: "empty subject", token: "sim:|"},
		{name: "oversize", token: "dl:" + strings.Repeat("a", MaxTokenSize) + "|b"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidToken", tc.token, err)
			}
			if !errors.Is(err, shared.ErrInvalidToken) {
				t.Errorf("Decode(%q) error should wrap shared.ErrInvalidToken", tc.token)
			}
		})
	}
}
