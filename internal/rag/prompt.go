package rag

import "fmt"

const promptTemplate = `**Инструкция:** Проанализируй следующий контекст (который может включать информацию из веб-поиска и/или локальной базы новостей). Затем ответь на вопрос пользователя **строго на русском языке**. Твой ответ должен быть основан **исключительно** на информации из предоставленного контекста. Не добавляй информацию, которой нет в тексте. Не выдумывай факты. Если информация для ответа полностью отсутствует в предоставленном контексте, напиши **только** фразу **на русском языке**: "%s"

**Контекст:**
%s

**Вопрос пользователя:** %s

**Ответ (на русском языке):**`

// BuildPrompt embeds the context and query into the fixed Russian instruction.
func BuildPrompt(context, query string) string {
	return fmt.Sprintf(promptTemplate, RefusalSentence, context, query)
}
