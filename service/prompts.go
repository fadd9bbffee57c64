package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const tutorSystem = "You are a math tutor.\n" +
	"- Use [CONTEXT] if present. If it’s missing or insufficient, rely on your math knowledge.\n" +
	"- Task type is inferred from the user’s wording:\n" +
	"  • EXPLAIN (general/conceptual): explain clearly; final statements allowed; no need to end with a question.\n" +
	"  • SOLVE (specific/assignment): be Socratic; do NOT reveal the final result; must end with a question.\n" +
	"- Levels:\n" +
	"  • L1 = light hints (≤ 2 short sentences).\n" +
	"  • L2 = more hands-on (outline + one micro-step; ≤ 6 sentences; still stop short).\n" +
	"Keep steps concise and level-appropriate.\n"

// TutorStop ends generation when the model starts a new section.
const TutorStop = "\n###"

// PromptRequest is a student's tutoring turn.
type PromptRequest struct {
	AssignmentID string `json:"assignment_id" binding:"required"`
	Level        string `json:"level"`
	Subject      string `json:"subject"`
	QNumber      string `json:"q_number"`
	UserMessage  string `json:"user_message" binding:"required"`
	History      string `json:"history"`
	// StudentID, when set, records the question in the chat log.
	StudentID *uint `json:"student_id,omitempty"`
}

// BuildTutorPrompt lays out system rules, history, the user turn and the
// numbered context blocks.
func BuildTutorPrompt(req PromptRequest, blocks []string) string {
	numbered := make([]string, len(blocks))
	for i, b := range blocks {
		numbered[i] = fmt.Sprintf("[CONTEXT %d]\n%s", i+1, b)
	}

	var sb strings.Builder
	sb.WriteString("### Input:\n[SYSTEM]\n")
	sb.WriteString(tutorSystem)
	sb.WriteString("[/SYSTEM]\n\n[HISTORY]\n")
	sb.WriteString(req.History)
	sb.WriteString("\n[/HISTORY]\n\n[USER]\n")
	fmt.Fprintf(&sb, "<SUBJECT=%s><LEVEL=%s>\n", req.Subject, req.Level)
	sb.WriteString(req.UserMessage)
	sb.WriteString("\n[/USER]\n\n[CONTEXT]\n")
	sb.WriteString(strings.Join(numbered, "\n\n"))
	sb.WriteString("\n[/CONTEXT]\n### Output:\n")
	return sb.String()
}

var quotedSpan = regexp.MustCompile(`["“”]([\s\S]*?)["“”]`)

// CleanQuotedOutput trims model chatter around a tutoring answer: anything
// after a "###" heading, trailing braces, and wrapping quotes.
func CleanQuotedOutput(text string) string {
	t := strings.TrimSpace(text)
	t, _, _ = strings.Cut(t, "\n###")
	t = strings.TrimRightFunc(t, unicode.IsSpace)
	t = strings.TrimRight(t, "}")
	t = strings.TrimRightFunc(t, unicode.IsSpace)

	if m := quotedSpan.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	r := []rune(t)
	if len(r) >= 2 && isQuote(r[0]) && isQuote(r[len(r)-1]) {
		return strings.TrimSpace(string(r[1 : len(r)-1]))
	}
	return t
}

func isQuote(r rune) bool { return r == '"' || r == '“' || r == '”' }

const extractionPromptTemplate = `You are an assistant that extracts assignment structure.
Return ONLY valid JSON matching this schema:
{
  "concepts": [{"id": "C1", "name": "...", "description": "optional"}],
  "questions": [{"id": "Q1", "prompt": "...", "position": 1}],
  "question_concepts": [{"question_id": "Q1", "concept_id": "C1"}],
  "assignment_concepts": [{"concept_id": "C1"}]
}
If a field is unknown, return an empty list. Do not add extra keys.
Assignment content:
%s
`

// AttachedContentNotice replaces the inline text when files travel as
// attachments.
const AttachedContentNotice = "Refer to the attached documents for the assignment content."

func buildExtractionPrompt(content string) string {
	return fmt.Sprintf(extractionPromptTemplate, content)
}

const scoringPromptTemplate = `You are an assistant that estimates how well each student understands an assignment.
Read the assignment questions, the concepts they exercise and the questions each student asked the tutor.
For every student, estimate understanding per concept and per question as a score between 0 and 1
(0 = no understanding, 1 = full understanding) and how confident you are in that estimate (0 to 1).
Return ONLY valid JSON matching this schema:
{
  "scores": [
    {"student_id": 1, "question_id": 1, "concept_id": 1, "score": 0.5, "confidence": 0.8}
  ]
}
Use the numeric ids from the input. question_id and concept_id may be null. Do not add extra keys.
Input:
%s
`

type scoringQuestion struct {
	ID       uint   `json:"id"`
	Prompt   string `json:"prompt"`
	Position *int   `json:"position"`
}

type scoringConcept struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type scoringChatLog struct {
	StudentID uint   `json:"student_id"`
	Question  string `json:"question"`
	CreatedAt string `json:"created_at"`
}

type scoringPayload struct {
	AssignmentID uint              `json:"assignment_id"`
	Questions    []scoringQuestion `json:"questions"`
	Concepts     []scoringConcept  `json:"concepts"`
	ChatLogs     []scoringChatLog  `json:"chat_logs"`
}

func buildScoringPrompt(p scoringPayload) (string, error) {
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scoring payload: %w", err)
	}
	return fmt.Sprintf(scoringPromptTemplate, body), nil
}
