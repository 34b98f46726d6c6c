package content

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Platform-safe limits. YouTube rejects titles above 100 characters.
const (
	MaxTitleRunes       = 100
	MaxDescriptionRunes = 4900
	MaxTags             = 15
)

// Fallback values used when a generated plan omits a field.
const (
	DefaultTitle       = "Daily Bite"
	DefaultDescription = "Daily short. #shorts"
	DefaultTag         = "shorts"
	DefaultSceneText   = "A fascinating bite-sized fact for today."
	DefaultVoice       = "af_heart"
	DefaultMusicTag    = MusicChill
)

var defaultSearchTerms = []string{"nature", "city", "time"}

// Scene is one narrated segment of the video.
type Scene struct {
	Text        string   `json:"text"`
	SearchTerms []string `json:"searchTerms"`
}

// ContentPlan is the script for one video.
type ContentPlan struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Scenes      []Scene  `json:"scenes"`
	MusicTag    string   `json:"musicTag"`
	Voice       string   `json:"voice"`
}

// Defaults carries the configured fallbacks for music and voice.
type Defaults struct {
	MusicTag string
	Voice    string
}

// DefaultScene returns the scene substituted when a plan carries none.
func DefaultScene() Scene {
	return Scene{Text: DefaultSceneText, SearchTerms: slices.Clone(defaultSearchTerms)}
}

// Normalize returns a render-submittable copy of plan. The input is not modified.
func Normalize(plan ContentPlan, defaults Defaults) ContentPlan {
	out := ContentPlan{
		Title:       clampRunes(cleanText(plan.Title), MaxTitleRunes),
		Description: clampRunes(strings.TrimSpace(norm.NFC.String(plan.Description)), MaxDescriptionRunes),
		Tags:        normalizeTags(plan.Tags),
		Scenes:      normalizeScenes(plan.Scenes),
		MusicTag:    NormalizeMusicTag(plan.MusicTag),
		Voice:       strings.TrimSpace(plan.Voice),
	}
	if out.Title == "" {
		out.Title = DefaultTitle
	}
	if out.Description == "" {
		out.Description = DefaultDescription
	}
	if len(out.Tags) == 0 {
		out.Tags = []string{DefaultTag}
	}
	if out.MusicTag == "" {
		out.MusicTag = NormalizeMusicTag(defaults.MusicTag)
	}
	if out.MusicTag == "" {
		out.MusicTag = DefaultMusicTag
	}
	if out.Voice == "" {
		out.Voice = strings.TrimSpace(defaults.Voice)
	}
	if out.Voice == "" {
		out.Voice = DefaultVoice
	}
	return out
}

// EnsureScenes returns scenes unchanged when non-empty and a single default scene otherwise.
func EnsureScenes(scenes []Scene) []Scene {
	if len(scenes) > 0 {
		return scenes
	}
	return []Scene{DefaultScene()}
}

func normalizeScenes(scenes []Scene) []Scene {
	out := make([]Scene, 0, len(scenes))
	for _, scene := range scenes {
		text := cleanText(scene.Text)
		if text == "" {
			continue
		}
		terms := make([]string, 0, len(scene.SearchTerms))
		for _, term := range scene.SearchTerms {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, term)
			}
		}
		if len(terms) == 0 {
			terms = slices.Clone(defaultSearchTerms)
		}
		out = append(out, Scene{Text: text, SearchTerms: terms})
	}
	return EnsureScenes(out)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := lowerCaser.String(tag)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// cleanText NFC-normalizes and collapses internal whitespace to single spaces.
func cleanText(value string) string {
	return strings.Join(strings.Fields(norm.NFC.String(value)), " ")
}

func clampRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:limit]))
}
