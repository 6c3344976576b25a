package script

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	sentenceRegex  = regexp.MustCompile(`[.!?…。]+["'”’)]*(?:\s+|$)`)
	headingRegex   = regexp.MustCompile(`^#{1,6}\s*`)
	bulletRegex    = regexp.MustCompile(`^(?:[-*•·]|\d+[.)])\s+`)
	emphasisRegex  = regexp.MustCompile(`\*\*|__|\*|` + "`")
	stageNoteRegex = regexp.MustCompile(`^[\[(（].*[\])）]$`)
	blankLineRegex = regexp.MustCompile(`\n\s*\n`)
)

// SplitSentences splits text after sentence-ending punctuation, keeping the
// punctuation with its sentence
func SplitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceRegex.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// SplitByCharLimit splits text into blocks of at most charLimit runes while
// preserving complete sentences. Sentences longer than the limit are split
// on word boundaries; a single word longer than the limit is kept whole.
func SplitByCharLimit(text string, charLimit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if charLimit <= 0 || utf8.RuneCountInString(text) <= charLimit {
		return []string{text}
	}

	var blocks []string
	current := ""

	flush := func() {
		if current != "" {
			blocks = append(blocks, current)
			current = ""
		}
	}
	appendPiece := func(piece string) {
		if current == "" {
			current = piece
			return
		}
		if utf8.RuneCountInString(current)+1+utf8.RuneCountInString(piece) > charLimit {
			flush()
			current = piece
			return
		}
		current += " " + piece
	}

	for _, sentence := range SplitSentences(text) {
		if utf8.RuneCountInString(sentence) <= charLimit {
			appendPiece(sentence)
			continue
		}

		flush()
		for _, word := range strings.Fields(sentence) {
			appendPiece(word)
		}
		flush()
	}
	flush()

	return blocks
}

// NormalizeBody removes markdown decoration and production notes from a
// generated script and returns its paragraphs
func NormalizeBody(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, block := range blankLineRegex.Split(text, -1) {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			line = headingRegex.ReplaceAllString(line, "")
			line = bulletRegex.ReplaceAllString(line, "")
			line = emphasisRegex.ReplaceAllString(line, "")
			line = strings.TrimSpace(line)
			if line == "" || line == "---" || stageNoteRegex.MatchString(line) {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, " "))
		}
	}
	return paragraphs
}
