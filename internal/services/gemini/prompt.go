package gemini

import (
	"fmt"
	"strings"
	"time"

	"dailyshorts/internal/content"
)

// BuildPlanPrompt renders the instruction sent to Gemini for the given UTC date.
func BuildPlanPrompt(date time.Time) string {
	return fmt.Sprintf(planPromptTemplate,
		date.UTC().Format("2006-01-02"),
		strings.Join(content.MusicTags(), ", "),
	)
}

const planPromptTemplate = `You write scripts for a daily vertical short video (YouTube Shorts, TikTok, Instagram Reels).
Today's date is %s.

Pick one surprising, verifiable, family-friendly fact or micro-story and write it as 1 to 3 short scenes.
Total narration must fit in 20 seconds. The title must be under 70 characters and must not use clickbait punctuation.

Respond with JSON only, in exactly this shape:
{
  "title": "string",
  "description": "string ending with #shorts",
  "tags": ["string"],
  "scenes": [
    {"text": "narration for the scene", "searchTerms": ["stock footage keyword", "another keyword"]}
  ],
  "musicTag": "one of: %s",
  "voice": "one of: af_heart, af_bella, am_liam, am_michael, bf_isabella, bm_george"
}

Each scene needs 2 to 4 concrete visual searchTerms in English.`
