package pipeline

import (
	"fmt"
	"strings"
)

// StyleConfig carries the caller's content-generation preferences. The
// whole struct is echoed into the stored content record.
type StyleConfig struct {
	LanguageStyle string `json:"language_style"`
	Density       string `json:"information_density"`
	Sentiment     string `json:"sentiment"`
	Delivery      string `json:"delivery_style"`
	OutputFormat  string `json:"output_format"`
	CitationStyle string `json:"citation_style"`
	Language      string `json:"language"`
	Editing       string `json:"editing"`
	Notes         string `json:"notes"`
}

// BuildArticlePrompt composes the single provider prompt from the
// transcript and the style configuration. Field order is fixed so the
// same inputs always produce the same prompt; the free-text notes are
// appended only when non-blank.
func BuildArticlePrompt(transcript string, cfg StyleConfig) string {
	var b strings.Builder

	b.WriteString("You are a journalist skilled at writing articles, news pieces and blog posts from transcriptions. Here are the details:\n")
	fmt.Fprintf(&b, "Transcription: %s\n\n", transcript)

	fmt.Fprintf(&b, "Language style: %s\n", cfg.LanguageStyle)
	fmt.Fprintf(&b, "Information density: %s\n", cfg.Density)
	fmt.Fprintf(&b, "Sentiment: %s\n", cfg.Sentiment)
	fmt.Fprintf(&b, "Delivery style: %s\n", cfg.Delivery)
	fmt.Fprintf(&b, "Output format: %s\n", cfg.OutputFormat)
	fmt.Fprintf(&b, "Citation style: %s\n", cfg.CitationStyle)
	fmt.Fprintf(&b, "Language: %s\n", cfg.Language)
	fmt.Fprintf(&b, "Editing: %s\n", cfg.Editing)

	b.WriteString("\nVerify the facts, and correct any misspelled names. Produce the article as rich HTML using elements such as <h1>, <p>, <strong> and <em> where appropriate. Do not include <html>, <head>, <body> or <style> tags.\n")

	if notes := strings.TrimSpace(cfg.Notes); notes != "" {
		fmt.Fprintf(&b, "Additional notes: %s\n", notes)
	}

	return b.String()
}
