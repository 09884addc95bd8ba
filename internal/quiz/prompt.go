package quiz

import (
	"fmt"
	"strings"

	"github.com/dgallion1/quizzer/internal/llm"
)

const generatePrompt = `You generate multiple-choice quiz questions from the content below.

Rules:
- Every question must be answerable from the content alone
- Each question has exactly four options labelled A, B, C and D
- Exactly one option is correct; the other three are plausible distractors
- Questions must be clear and unambiguous and test understanding of key concepts, not trivia
- Pitch the difficulty at a reader studying this material
- Give a short explanation of why the correct option is right
- "answer" is the label of the correct option: "A", "B", "C" or "D"

Respond with ONLY a JSON object of the form {"quizzes": [...]}, no other text.

---
Content:
%s`

const reviewPrompt = `You review generated quiz questions against the content they were written from.

Judge the quiz on:
1. Relevance: does it test comprehension of this content?
2. Accuracy: is the marked answer correct according to the content, and are the distractors wrong?
3. Clarity: are the question and its options unambiguous?
4. Difficulty: is it appropriate for someone studying this material?

Set "is_relevant" to true only if the quiz is relevant and accurate. Put concrete, constructive
feedback in "feedback".

Respond with ONLY a JSON object, no other text.

---
Content:
%s

---
Quiz:
%s`

// BuildGeneratePrompt renders the generation prompt for a chunk of text.
func BuildGeneratePrompt(chunkText string) string {
	return fmt.Sprintf(generatePrompt, chunkText)
}

// BuildReviewPrompt renders the review prompt for a chunk and the
// candidates generated from it.
func BuildReviewPrompt(chunkText string, cands []Candidate) string {
	var sb strings.Builder
	for i, c := range cands {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Question)
		for j, o := range c.Options() {
			fmt.Fprintf(&sb, "   %s) %s\n", Labels[j], o)
		}
		fmt.Fprintf(&sb, "   Answer: %s\n", c.Answer)
		if c.Explanation != DefaultExplanation {
			fmt.Fprintf(&sb, "   Explanation: %s\n", c.Explanation)
		}
	}
	return fmt.Sprintf(reviewPrompt, chunkText, sb.String())
}

// QuizSetSchema describes the generation reply.
var QuizSetSchema = &llm.Schema{
	Name: "quiz_set",
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"quizzes": {
			Type:        llm.TypeArray,
			Description: "Quiz questions with options and answers",
			Items: &llm.Schema{
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"question": {Type: llm.TypeString, Description: "The quiz question"},
					"option_a": {Type: llm.TypeString},
					"option_b": {Type: llm.TypeString},
					"option_c": {Type: llm.TypeString},
					"option_d": {Type: llm.TypeString},
					"answer": {
						Type:        llm.TypeString,
						Description: "Label of the correct option",
						Enum:        []string{"A", "B", "C", "D"},
					},
					"explanation": {Type: llm.TypeString, Description: "Why the answer is correct"},
				},
				Required: []string{"question", "option_a", "option_b", "option_c", "option_d", "answer"},
			},
		},
	},
	Required: []string{"quizzes"},
}

// ReviewSchema describes the review reply.
var ReviewSchema = &llm.Schema{
	Name: "quiz_review",
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"is_relevant": {Type: llm.TypeBoolean, Description: "Whether the quiz is relevant to the content"},
		"feedback":    {Type: llm.TypeString, Description: "Feedback on quiz quality and relevance"},
	},
	Required: []string{"is_relevant", "feedback"},
}
