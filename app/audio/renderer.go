package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/worldbrief/worldbrief/app/sections"
)

const (
	// DefaultVoice is a clear, newscast-friendly voice.
	DefaultVoice = "nova"

	// Spoken word budget per section.
	maxWordsPerSection = 200

	// Sections shorter than this after cleanup are skipped.
	minSpeechChars = 50
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Regexp for characters dropped when slugging category names into filenames.
var slugDropPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Speech(ctx context.Context, input, voice string) ([]byte, error)
}

// Renderer produces per-category MP3 files from a briefing's prose.
type Renderer struct {
	synth     Synthesizer
	outputDir string
	voice     string
}

// NewRenderer creates a renderer writing MP3 files under outputDir.
func NewRenderer(synth Synthesizer, outputDir string) *Renderer {
	return &Renderer{synth: synth, outputDir: outputDir, voice: DefaultVoice}
}

// RenderSections splits the briefing into category sections, cleans each one
// for speech, and synthesizes one MP3 per section. It returns category name to
// filename for every section that rendered; per-section failures are logged
// and skipped.
func (r *Renderer) RenderSections(ctx context.Context, briefText, dateLabel string) (map[string]string, error) {
	parsed := sections.Parse(briefText)
	if len(parsed) == 0 {
		slog.Warn("No sections found in briefing text, skipping audio")
		return map[string]string{}, nil
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio output directory: %w", err)
	}

	rendered := make(map[string]string)
	for _, section := range parsed {
		speech := CleanForSpeech(section)
		if len(speech) < minSpeechChars {
			slog.Warn("Section too short for audio, skipping", "category", section.Category, "chars", len(speech))
			continue
		}

		filename := fmt.Sprintf("%s-%s.mp3", dateLabel, slug(section.Category))
		path := filepath.Join(r.outputDir, filename)

		data, err := r.synth.Speech(ctx, speech, r.voice)
		if err != nil {
			slog.Error("Audio synthesis failed for section", "category", section.Category, "error", err)
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			slog.Error("Failed to write audio file", "path", path, "error", err)
			continue
		}

		slog.Info("Audio section rendered", "category", section.Category, "file", filename, "bytes", len(data))
		rendered[section.Category] = filename
	}

	return rendered, nil
}

// CleanForSpeech rewrites one section into text that reads naturally aloud:
// a spoken transition instead of the bare header, no URLs or bullet markers,
// and a bounded word count.
func CleanForSpeech(section sections.Section) string {
	parts := []string{fmt.Sprintf("Next, %s.", section.Category)}
	for _, bullet := range section.Bullets {
		parts = append(parts, strings.TrimSpace(urlPattern.ReplaceAllString(bullet, "")))
	}
	if section.WhyItMatters != "" {
		parts = append(parts, "Why it matters. "+section.WhyItMatters)
	}

	return truncateWords(strings.Join(parts, " "), maxWordsPerSection)
}

func truncateWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ")
}

func slug(category string) string {
	s := slugDropPattern.ReplaceAllString(strings.ToLower(category), "-")
	return strings.Trim(s, "-")
}
