package rag

import (
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	SectionWeb   = "web"
	SectionLocal = "local"

	webHeader   = "===== Информация из Веб-Поиска ====="
	localHeader = "===== Информация из Базы Новостей ====="

	// Separator joins documents within a section and sections within the context.
	Separator = "\n\n---\n\n"
)

// Section is one labeled block of context.
type Section struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

func (s Section) render() string {
	switch s.Label {
	case SectionWeb:
		return webHeader + "\n" + s.Content
	case SectionLocal:
		return localHeader + "\n" + s.Content
	}
	return s.Content
}

// buildSections returns the non-empty sections, web first. Section content is trimmed.
func buildSections(web WebOutcome, local LocalOutcome) []Section {
	var sections []Section
	if summary := strings.TrimSpace(web.Summary); web.OK() && summary != "" {
		sections = append(sections, Section{Label: SectionWeb, Content: summary})
	}
	if local.OK() && len(local.Documents) > 0 {
		if docs := strings.TrimSpace(strings.Join(local.Documents, Separator)); docs != "" {
			sections = append(sections, Section{Label: SectionLocal, Content: docs})
		}
	}
	return sections
}

// AssembleContext joins sections and caps the result at maxLen characters, appending
// "..." when it had to cut.
func AssembleContext(sections []Section, maxLen int) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.render()
	}
	return utils.Truncate(strings.Join(parts, Separator), maxLen)
}
