// Package prompts turns personas, modes and collected answers into completion
// requests. Everything here is a pure function of its inputs.
package prompts

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

// RecapEntryMaxRunes bounds how much of each entry goes into a recap prompt.
const RecapEntryMaxRunes = 400

// RecapSystemPrompt is used when the catalog's recap mode has no prompt of its own.
const RecapSystemPrompt = `You review a week of journal entries. Identify recurring themes, emotional
patterns and wins. Then give exactly three concrete action steps for the week
ahead, as a numbered list. Be kind and specific; never diagnose.`

// Prompt is the system prompt plus the content sent as the user turn.
type Prompt struct {
	System string
	User   string
}

// Context carries the optional clauses appended to a system prompt.
type Context struct {
	// Mood is nil when the client did not report one.
	Mood         *int
	Emotions     []string
	ProtocolName string
}

// SystemPrompt appends the mood and protocol clauses to a base template.
// Each clause is added only when its input is present.
func SystemPrompt(base string, c Context) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))

	if c.Mood != nil {
		fmt.Fprintf(&b, "\nUser mood: %d/10.", domain.ClampMood(*c.Mood))
		if len(c.Emotions) > 0 {
			fmt.Fprintf(&b, " Emotions: %s.", strings.Join(c.Emotions, ", "))
		}
	} else if len(c.Emotions) > 0 {
		fmt.Fprintf(&b, "\nEmotions: %s.", strings.Join(c.Emotions, ", "))
	}

	if name := strings.TrimSpace(c.ProtocolName); name != "" {
		fmt.Fprintf(&b, "\nThey completed the %s protocol. Respond supportively.", name)
	}
	return b.String()
}

// BuildRequest builds the prompt for a finished guided protocol. The user content
// is one "key: value" line per answer, in step order.
func BuildRequest(persona *domain.Persona, protocolName string, mood int, emotions []string, answers []domain.Answer) Prompt {
	base := ""
	if persona != nil {
		base = persona.SystemPrompt
	}
	return Prompt{
		System: SystemPrompt(base, Context{Mood: &mood, Emotions: emotions, ProtocolName: protocolName}),
		User:   domain.FlattenAnswers(answers),
	}
}

// BuildRecap builds a recap prompt over entries, most recent first. It returns
// false when there is nothing to summarize.
func BuildRecap(system string, entries []*domain.JournalEntry) (Prompt, bool) {
	if len(entries) == 0 {
		return Prompt{}, false
	}
	if strings.TrimSpace(system) == "" {
		system = RecapSystemPrompt
	}

	blocks := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e == nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s",
			e.CreatedAt.UTC().Format(time.RFC3339),
			Truncate(e.Text(), RecapEntryMaxRunes),
		))
	}
	if len(blocks) == 0 {
		return Prompt{}, false
	}

	return Prompt{
		System: strings.TrimSpace(system),
		User:   "Journal entries (most recent first):\n\n" + strings.Join(blocks, "\n\n"),
	}, true
}

// Truncate cuts s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}

// ForMode wraps a prompt with the generation settings of a mode.
func ForMode(p Prompt, m *domain.Mode) domain.CompletionRequest {
	req := domain.CompletionRequest{
		SystemPrompt: p.System,
		UserContent:  p.User,
	}
	if m != nil {
		req.Temperature = m.Temperature
		req.MaxOutputTokens = m.MaxOutputTokens
	}
	return req
}
