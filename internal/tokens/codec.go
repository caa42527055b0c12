// Package tokens encodes selection intents into compact payloads that survive a round trip through a UI element.
//
// A token has the form
//
//	<code>:<artist>|<title>
//
// where code is "dl" or "sim" and both fields are percent-escaped so that
// "%" and "|" inside names never collide with the delimiter.
// Tokens are self-contained and stay valid across restarts.
package tokens

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

// MaxTokenSize is the payload ceiling imposed by chat front-ends.
const MaxTokenSize = 64

const (
	codeDownload = "dl"
	codeSimilar  = "sim"
	delimiter    = "|"
)

var (
	ErrTokenTooLong = errors.New("action token exceeds size limit")
	ErrInvalidToken = fmt.Errorf("%w", shared.ErrInvalidToken)
)

var (
	escaper   = strings.NewReplacer("%", "%25", "|", "%7C")
	unescaper = strings.NewReplacer("%25", "%", "%7C", "|")
)

func codeFor(intent models.Intent) (string, error) {
	switch intent {
	case models.IntentDownload:
		return codeDownload, nil
	case models.IntentShowSimilar:
		return codeSimilar, nil
	default:
		return "", fmt.Errorf("%w: unknown intent %d", shared.ErrInvalidArgument, intent)
	}
}

func build(code, artist, title string) string {
	return code + ":" + escaper.Replace(artist) + delimiter + escaper.Replace(title)
}

// Encode produces the token for intent on (artist, title).
// It fails with [ErrTokenTooLong] when the result would exceed [MaxTokenSize].
func Encode(intent models.Intent, artist, title string) (string, error) {
	code, err := codeFor(intent)
	if err != nil {
		return "", err
	}

	token := build(code, artist, title)
	if len(token) > MaxTokenSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
	}
	return token, nil
}

// EncodeFit behaves like [Encode] but shortens the title, then the artist, until the token fits.
func EncodeFit(intent models.Intent, artist, title string) (string, error) {
	code, err := codeFor(intent)
	if err != nil {
		return "", err
	}

	for {
		token := build(code, artist, title)
		if len(token) <= MaxTokenSize {
			return token, nil
		}

		switch {
		case title != "":
			title = dropLastRune(title)
		case artist != "":
			artist = dropLastRune(artist)
		default:
			return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
		}
	}
}

func dropLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return strings.TrimSpace(s[:len(s)-size])
}

// Decode parses a token produced by [Encode].
// Anything else, including the legacy "download_" scheme, yields [ErrInvalidToken].
func Decode(token string) (models.ActionToken, error) {
	if token == "" || len(token) > MaxTokenSize {
		return models.ActionToken{}, fmt.Errorf("%w: bad length %d", ErrInvalidToken, len(token))
	}

	code, body, ok := strings.Cut(token, ":")
	if !ok {
		return models.ActionToken{}, fmt.Errorf("%w: missing prefix", ErrInvalidToken)
	}

	var intent models.Intent
	switch code {
	case codeDownload:
		intent = models.IntentDownload
	case codeSimilar:
		intent = models.IntentShowSimilar
	default:
		return models.ActionToken{}, fmt.Errorf("%w: unknown prefix %q", ErrInvalidToken, code)
	}

	if strings.Count(body, delimiter) != 1 {
		return models.ActionToken{}, fmt.Errorf("%w: expected one delimiter", ErrInvalidToken)
	}
	rawArtist, rawTitle, _ := strings.Cut(body, delimiter)

	artist, err := unescape(rawArtist)
	if err != nil {
		return models.ActionToken{}, err
	}
	title, err := unescape(rawTitle)
	if err != nil {
		return models.ActionToken{}, err
	}
	if artist == "" && title == "" {
		return models.ActionToken{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return models.ActionToken{Intent: intent, Artist: artist, Title: title}, nil
}

// unescape rejects any escape sequence [Encode] never emits.
func unescape(s string) (string, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+3 > len(s) {
			return "", fmt.Errorf("%w: truncated escape", ErrInvalidToken)
		}
		switch seq := s[i : i+3]; seq {
		case "%25", "%7C":
			i += 2
		default:
			return "", fmt.Errorf("%w: bad escape %q", ErrInvalidToken, seq)
		}
	}
	return unescaper.Replace(s), nil
}
