package search

import "strings"

// splitText breaks text into slices of about maxWords words, preferring
// paragraph boundaries, then sentence boundaries.
func splitText(text string, maxWords, overlapWords int) []string {
	if wordCount(text) <= maxWords {
		return []string{strings.TrimSpace(text)}
	}

	var result []string
	var current strings.Builder
	currentWords := 0

	flush := func() {
		result = append(result, current.String())
		overlap := overlapText(current.String(), overlapWords)
		current.Reset()
		currentWords = 0
		if overlap != "" {
			current.WriteString(overlap)
			currentWords = wordCount(overlap)
		}
	}

	for _, para := range splitByParagraphs(text) {
		paraWords := wordCount(para)

		if paraWords > maxWords {
			if currentWords > 0 {
				result = append(result, current.String())
				current.Reset()
				currentWords = 0
			}
			result = append(result, splitBySentences(para, maxWords, overlapWords)...)
			continue
		}

		if currentWords+paraWords > maxWords && currentWords > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentWords += paraWords
	}

	if currentWords > 0 {
		result = append(result, current.String())
	}
	return result
}

func splitByParagraphs(text string) []string {
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func splitBySentences(text string, maxWords, overlapWords int) []string {
	var result []string
	var current strings.Builder
	currentWords := 0

	for _, sent := range splitSentences(text) {
		sentWords := wordCount(sent)
		if currentWords+sentWords > maxWords && currentWords > 0 {
			result = append(result, current.String())
			overlap := overlapText(current.String(), overlapWords)
			current.Reset()
			currentWords = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentWords = wordCount(overlap)
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentWords += sentWords
	}

	if currentWords > 0 {
		result = append(result, current.String())
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// overlapText returns the last n words of text.
func overlapText(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}
