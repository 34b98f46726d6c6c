package gemini

import (
	"encoding/json"

	"dailyshorts/internal/content"
)

// decodePlan reads a plan from model output. The payload must be a JSON
// object; any field with an unexpected type is dropped so normalization can
// default it.
func decodePlan(text string) (content.ContentPlan, error) {
	var fields map[string]json.RawMessage
	if err := DecodeJSON(text, &fields); err != nil {
		return content.ContentPlan{}, err
	}
	return content.ContentPlan{
		Title:       rawString(fields["title"]),
		Description: rawString(fields["description"]),
		Tags:        rawStrings(fields["tags"]),
		Scenes:      rawScenes(fields["scenes"]),
		MusicTag:    rawString(fields["musicTag"]),
		Voice:       rawString(fields["voice"]),
	}, nil
}

func rawString(raw json.RawMessage) string {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return ""
	}
	return value
}

// rawStrings keeps the string elements of an array and ignores the rest.
func rawStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var value string
		if json.Unmarshal(item, &value) == nil {
			out = append(out, value)
		}
	}
	return out
}

func rawScenes(raw json.RawMessage) []content.Scene {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	scenes := make([]content.Scene, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if json.Unmarshal(item, &fields) != nil {
			continue
		}
		scenes = append(scenes, content.Scene{
			Text:        rawString(fields["text"]),
			SearchTerms: rawStrings(fields["searchTerms"]),
		})
	}
	return scenes
}
