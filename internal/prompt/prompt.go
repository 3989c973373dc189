// Package prompt renders patient profiles into model prompts for the
// five fixed use cases. Building is deterministic: the same inputs
// always produce the same string.
package prompt

import (
	"fmt"
	"strings"

	"patient-education/internal/store"
)

// ValidationError reports a missing required input. It maps to a form
// error in the UI, never to a malformed prompt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// QuizQuestionCount is the number of questions the quiz template asks
// for. The interpreter accepts any positive count; this is only the
// instruction to the model.
const QuizQuestionCount = 5

// Delimiter convention shared with the interpreter. The quiz template
// instructs the model to emit these exact prefixes.
const (
	MarkerQuestion    = "Question"
	MarkerAnswer      = "Answer:"
	MarkerExplanation = "Explanation:"
	MarkerCategory    = "Category:"
)

// sanitize neutralizes patient free text before template insertion:
// control characters are dropped and lines that would collide with the
// structural markers are defused with a leading quote. This guards the
// delimiter convention, not the model itself.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		// The interpreter matches markers case-insensitively, so defusal
		// has to as well.
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, strings.ToLower(MarkerQuestion)) ||
			strings.HasPrefix(lower, strings.ToLower(MarkerAnswer)) ||
			strings.HasPrefix(lower, strings.ToLower(MarkerExplanation)) ||
			strings.HasPrefix(lower, strings.ToLower(MarkerCategory)) ||
			strings.HasPrefix(trimmed, "```") {
			lines[i] = "> " + trimmed
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func profileBlock(p store.Patient) string {
	return fmt.Sprintf(`- Name: %s
- Age: %d
- Gender: %s
- Education Level: %s
- Primary Language: %s
- Medical Condition: %s
- Treatment Plan: %s
- Medications: %s
- Learning Style: %s
- Special Needs: %s`,
		sanitize(p.Name), p.Age, sanitize(p.Gender), sanitize(p.EducationLevel),
		sanitize(p.Language), sanitize(p.Condition), sanitize(p.Treatment),
		sanitize(p.Medications), sanitize(p.LearningStyle), sanitize(p.SpecialNeeds))
}

func requireCondition(p store.Patient) error {
	if strings.TrimSpace(p.Condition) == "" {
		return &ValidationError{Field: "condition", Reason: "patient has no medical condition set"}
	}
	return nil
}

// Education renders the education-material prompt.
func Education(p store.Patient) (string, error) {
	if err := requireCondition(p); err != nil {
		return "", err
	}
	return fmt.Sprintf(`Generate personalized patient education material for the following patient:

%s

Create educational content that:
1. Explains their condition in simple, understandable terms appropriate for their education level
2. Describes their treatment plan and why it is important
3. Explains how to take their medications, potential side effects, and when to contact healthcare providers
4. Includes lifestyle recommendations specific to their condition
5. Uses language and examples appropriate for their age, gender, and cultural background
6. Adapts to their preferred learning style
7. Accommodates any special needs mentioned

The content should be empathetic, encouraging, and empowering for the patient.
Format the content with clear headings, bullet points where appropriate, and a summary at the end.`,
		profileBlock(p)), nil
}

// Chat renders the chat-reply prompt for a patient question.
func Chat(p store.Patient, question string) (string, error) {
	if err := requireCondition(p); err != nil {
		return "", err
	}
	q := sanitize(question)
	if q == "" {
		return "", &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	return fmt.Sprintf(`You are a medical assistant chatbot helping a patient with their health condition.

Patient Information:
%s

The patient is asking: "%s"

Provide a single, clear, and concise answer that is:
1. Appropriate for their education level and learning style
2. Specific to their medical condition and treatment plan
3. Empathetic and reassuring
4. Accurate but not overly technical
5. Includes actionable advice when appropriate

If the question is outside of your scope or requires immediate medical attention, advise the patient to contact their healthcare provider.`,
		profileBlock(p), q), nil
}

// Injury renders the injury-analysis prompt. The image travels with the
// gateway request, not inside the prompt text.
func Injury(description string) (string, error) {
	d := sanitize(description)
	if d == "" {
		return "", &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	return fmt.Sprintf(`Analyze this injury or skin condition based on the image and description.

Patient Description: %s

Please provide the following:
1. Possible identification of the condition (with a disclaimer that this is not a medical diagnosis)
2. Common causes for this type of injury or condition
3. Recommended home remedies or over-the-counter treatments
4. When to seek professional medical attention
5. Precautions to follow
6. Expected healing timeline

Format the response with clear headings and bullet points where appropriate.
Include a clear disclaimer at the beginning that this is not medical advice and serious conditions require professional medical attention.`,
		d), nil
}

// Quiz renders the quiz-generation prompt. It pins the line-delimiter
// convention the interpreter parses: numbered "Question N:" blocks with
// "A)".."D)" options and "Answer:" / "Explanation:" / "Category:" lines.
func Quiz(p store.Patient) (string, error) {
	if err := requireCondition(p); err != nil {
		return "", err
	}
	return fmt.Sprintf(`Create a knowledge assessment quiz for a patient with the following profile:
- Condition: %s
- Education Level: %s
- Learning Style: %s

Generate %d multiple-choice questions that assess the patient's understanding of:
1. Basic condition information
2. Treatment rationale
3. Medication understanding
4. Self-management techniques
5. Warning signs requiring medical attention

Output the quiz as plain text, strictly in this format, with no extra commentary:

Question 1: <question text>
A) <option>
B) <option>
C) <option>
D) <option>
Answer: <the full text of the correct option>
Explanation: <why the correct answer is right>
Category: <knowledge category being tested>

Repeat the same block for every question, numbering them sequentially.`,
		sanitize(p.Condition), sanitize(p.EducationLevel), sanitize(p.LearningStyle),
		QuizQuestionCount), nil
}

// GradingFeedback renders the quiz-grading prompt used to turn a graded
// quiz into encouraging prose for the patient.
func GradingFeedback(p store.Patient, correct, total int) (string, error) {
	if err := requireCondition(p); err != nil {
		return "", err
	}
	if total <= 0 {
		return "", &ValidationError{Field: "total", Reason: "must be positive"}
	}
	return fmt.Sprintf(`A patient with %s completed a knowledge quiz about their condition and answered %d of %d questions correctly.
Their education level is %s.

Write a short, encouraging summary of their result that:
1. Acknowledges what they understand well
2. Gently points out that the missed topics are worth revisiting
3. Suggests discussing persistent gaps with their healthcare provider

Keep it under 120 words and do not repeat the questions.`,
		sanitize(p.Condition), correct, total, sanitize(p.EducationLevel)), nil
}
