package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	// RefusalSentence is returned verbatim when the context cannot answer the query.
	RefusalSentence = "В предоставленных данных (включая веб-поиск) нет информации по этому вопросу."
	// LegacyRefusalSentence is an older phrasing models still produce.
	LegacyRefusalSentence = "There is no information on this matter in the provided news."
)

// boilerplateMarkers are scanned in order; the response is cut at the first one found.
var boilerplateMarkers = []string{
	"---",
	"### Пример:",
	"**Инструкция:**",
	"**Контекст:**",
	"**Вопрос:**",
	"**Ответ (на русском языке):**",
}

// markerGuard is how many leading characters may precede a marker without a cut.
const markerGuard = 5

// refusalSpan covers either refusal phrasing plus the guard.
var refusalSpan = max(utf8.RuneCountInString(RefusalSentence), utf8.RuneCountInString(LegacyRefusalSentence)) + markerGuard

// IsRefusal reports whether text is exactly one of the recognized refusal phrasings.
func IsRefusal(text string) bool {
	return text == RefusalSentence || text == LegacyRefusalSentence
}

// CleanResponse strips restated prompt boilerplate from a model response and normalizes
// refusals to RefusalSentence. Positions are counted in characters.
func CleanResponse(raw string) string {
	response := strings.TrimSpace(raw)
	cleaned := response
	refusal := strings.HasPrefix(response, RefusalSentence) || strings.HasPrefix(response, LegacyRefusalSentence)

	for _, marker := range boilerplateMarkers {
		i := strings.Index(cleaned, marker)
		if i < 0 {
			continue
		}
		pos := utf8.RuneCountInString(cleaned[:i])
		if pos <= markerGuard {
			continue
		}
		if refusal && pos < refusalSpan {
			continue
		}
		cleaned = strings.TrimSpace(cleaned[:i])
		break
	}

	switch {
	case cleaned == "":
		return RefusalSentence
	case refusal && !IsRefusal(cleaned):
		return RefusalSentence
	}
	return strings.TrimSpace(cleaned)
}
