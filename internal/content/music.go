package content

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Music moods understood by the renderer.
const (
	MusicSad           = "sad"
	MusicMelancholic   = "melancholic"
	MusicHappy         = "happy"
	MusicEuphoric      = "euphoric/high"
	MusicExcited       = "excited"
	MusicChill         = "chill"
	MusicUneasy        = "uneasy"
	MusicAngry         = "angry"
	MusicDark          = "dark"
	MusicHopeful       = "hopeful"
	MusicContemplative = "contemplative"
	MusicFunny         = "funny/quirky"
)

var musicTags = []string{
	MusicSad, MusicMelancholic, MusicHappy, MusicEuphoric, MusicExcited, MusicChill,
	MusicUneasy, MusicAngry, MusicDark, MusicHopeful, MusicContemplative, MusicFunny,
}

var lowerCaser = cases.Lower(language.Und)

// MusicTags returns the music vocabulary in a stable order.
func MusicTags() []string {
	return slices.Clone(musicTags)
}

// NormalizeMusicTag folds case and whitespace and maps shorthand forms
// ("euphoric", "funny") onto their vocabulary entry. Unknown values return "".
func NormalizeMusicTag(value string) string {
	tag := lowerCaser.String(strings.TrimSpace(value))
	switch tag {
	case "euphoric", "high":
		return MusicEuphoric
	case "funny", "quirky":
		return MusicFunny
	}
	if slices.Contains(musicTags, tag) {
		return tag
	}
	return ""
}

// IsMusicTag reports whether value names a vocabulary entry.
func IsMusicTag(value string) bool {
	return NormalizeMusicTag(value) != ""
}
