// Package interpret parses free-text model responses into structure
// where the UI needs it. Parsing never fails hard: output that breaks
// the expected convention degrades to an unstructured result the UI can
// show as prose.
package interpret

import (
	"strings"

	"patient-education/internal/store"
)

type Kind string

const (
	Structured   Kind = "structured"
	Unstructured Kind = "unstructured"
)

// Result is the tagged outcome of parsing a quiz response. Quiz is set
// only when Kind is Structured; Raw always holds the original text.
type Result struct {
	Kind Kind
	Quiz []store.QuizQuestion
	Raw  string
}

// Markers mirror the quiz-generation prompt's delimiter convention.
const (
	questionMarker    = "question"
	answerMarker      = "answer:"
	explanationMarker = "explanation:"
	categoryMarker    = "category:"
)

// stripFences removes a leading/trailing Markdown code fence. Models
// habitually wrap "plain text" output in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// questionText extracts the text after "Question N:"; ok is false if the
// line is not a question header.
func questionText(line string) (string, bool) {
	lower := strings.ToLower(line)
	if !strings.HasPrefix(lower, questionMarker) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(questionMarker):])
	// Skip the number, then require a colon or period separator.
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(rest) {
		return "", false
	}
	if rest[i] != ':' && rest[i] != '.' {
		return "", false
	}
	return strings.TrimSpace(rest[i+1:]), true
}

// optionText extracts the text of an "A)".."D)" option line.
func optionText(line string) (string, bool) {
	if len(line) < 2 {
		return "", false
	}
	c := line[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'D' {
		return "", false
	}
	if line[1] != ')' && line[1] != '.' {
		return "", false
	}
	return strings.TrimSpace(line[2:]), true
}

func prefixed(line, marker string) (string, bool) {
	if strings.HasPrefix(strings.ToLower(line), marker) {
		return strings.TrimSpace(line[len(marker):]), true
	}
	return "", false
}

// ParseQuiz attempts to extract question/answer pairs from raw model
// text per the quiz template's convention. Any deviation returns an
// unstructured result with the raw text intact; it never panics and
// never returns an error.
func ParseQuiz(raw string) Result {
	body := stripFences(raw)

	var questions []store.QuizQuestion
	var cur *store.QuizQuestion
	flush := func() {
		if cur != nil {
			questions = append(questions, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if text, ok := questionText(line); ok {
			flush()
			cur = &store.QuizQuestion{Text: text}
			continue
		}
		if cur == nil {
			continue
		}
		if opt, ok := optionText(line); ok {
			cur.Options = append(cur.Options, opt)
			continue
		}
		if v, ok := prefixed(line, answerMarker); ok {
			cur.Answer = v
			continue
		}
		if v, ok := prefixed(line, explanationMarker); ok {
			cur.Explanation = v
			continue
		}
		if v, ok := prefixed(line, categoryMarker); ok {
			cur.Category = v
			continue
		}
	}
	flush()

	if len(questions) == 0 {
		return Result{Kind: Unstructured, Raw: raw}
	}
	for _, q := range questions {
		if q.Text == "" || q.Answer == "" || len(q.Options) < 2 {
			return Result{Kind: Unstructured, Raw: raw}
		}
	}
	return Result{Kind: Structured, Quiz: questions, Raw: raw}
}

// QuestionFeedback is one graded question.
type QuestionFeedback struct {
	Question      string `json:"question"`
	Submitted     string `json:"submitted"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation"`
}

// Grading is the outcome of scoring submitted responses. Degraded marks
// a quiz that was never structured; its score is zero and Feedback is
// empty, but grading still succeeds.
type Grading struct {
	Total    int                `json:"total"`
	Correct  int                `json:"correct"`
	Degraded bool               `json:"degraded"`
	Feedback []QuestionFeedback `json:"feedback,omitempty"`
}

// Grade scores submitted responses against an assessment. Missing
// responses count as incorrect; extra responses are ignored.
func Grade(a store.Assessment, responses []string) Grading {
	if a.Unstructured || len(a.Questions) == 0 {
		return Grading{Degraded: true}
	}
	g := Grading{Total: len(a.Questions)}
	for i, q := range a.Questions {
		var submitted string
		if i < len(responses) {
			submitted = strings.TrimSpace(responses[i])
		}
		correct := submitted != "" && strings.EqualFold(submitted, strings.TrimSpace(q.Answer))
		if correct {
			g.Correct++
		}
		g.Feedback = append(g.Feedback, QuestionFeedback{
			Question:      q.Text,
			Submitted:     submitted,
			CorrectAnswer: q.Answer,
			Correct:       correct,
			Explanation:   q.Explanation,
		})
	}
	return g
}
