package generate

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\(([^)]+)\)`)
	chapterPrefix = regexp.MustCompile(`(?i)^(capítulo|chapter) \d+:`)
	numberPrefix  = regexp.MustCompile(`^\d+\.`)
)

// CleanJSON strips markdown code fences from a model response and cuts
// it down to the outermost JSON object. Models occasionally wrap JSON
// in ```json blocks or pad it with prose despite the schema constraint.
func CleanJSON(text string) string {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	first := strings.Index(clean, "{")
	last := strings.LastIndex(clean, "}")
	if first != -1 && last != -1 && first < last {
		clean = clean[first : last+1]
	}
	return clean
}

// SanitizeTitle cleans chapter titles that carry leaked instructions,
// e.g. "Capítulo 3: O Início (Foco no contexto histórico do tema)".
func SanitizeTitle(raw string) string {
	if raw == "" {
		return "Capítulo Sem Título"
	}

	clean := parenthetical.ReplaceAllStringFunc(raw, func(match string) string {
		content := strings.ToLower(match[1 : len(match)-1])
		if len([]rune(content)) > 25 ||
			strings.Contains(content, "foco") ||
			strings.Contains(content, "instrução") ||
			strings.Contains(content, "capítulo") {
			return ""
		}
		return match
	})

	if strings.Contains(clean, " - ") {
		parts := strings.SplitN(clean, " - ", 2)
		if len(parts) == 2 && len([]rune(parts[1])) > 30 {
			clean = parts[0]
		}
	}

	clean = strings.TrimSpace(chapterPrefix.ReplaceAllString(clean, ""))
	clean = strings.TrimSpace(numberPrefix.ReplaceAllString(clean, ""))

	if runes := []rune(clean); len(runes) > 80 {
		head := string(runes[:80])
		if idx := strings.LastIndex(head, " "); idx > 0 {
			head = head[:idx]
		}
		clean = head + "..."
	}
	return strings.TrimSpace(clean)
}

var languageNames = map[string]string{
	"pt": "Portuguese (PT-BR)", "en": "English", "es": "Spanish",
	"fr": "French", "de": "German", "it": "Italian", "ja": "Japanese",
	"ko": "Korean", "zh": "Chinese (Simplified)", "ru": "Russian",
	"hi": "Hindi", "ar": "Arabic", "nl": "Dutch", "pl": "Polish",
	"tr": "Turkish", "sv": "Swedish",
}

// LanguageName maps an ISO code to the full name used in prompts.
// Unknown codes fall back to Brazilian Portuguese, the platform default.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "Portuguese (PT-BR)"
}
