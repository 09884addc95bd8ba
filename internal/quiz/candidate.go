package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/quizzer/internal/llm"
)

// DefaultExplanation is written when the model gives no explanation.
const DefaultExplanation = "N/A"

// Labels are the four option labels in order.
var Labels = [4]string{"A", "B", "C", "D"}

// Candidate is one normalized multiple-choice question.
type Candidate struct {
	Question    string `json:"question"`
	OptionA     string `json:"option_a"`
	OptionB     string `json:"option_b"`
	OptionC     string `json:"option_c"`
	OptionD     string `json:"option_d"`
	Answer      string `json:"correct_option"`
	Explanation string `json:"explanation"`
	PageNumber  int    `json:"page_number"`
	ChunkID     string `json:"chunk_id"`
}

// Options returns the option texts in label order.
func (c Candidate) Options() [4]string {
	return [4]string{c.OptionA, c.OptionB, c.OptionC, c.OptionD}
}

// rawQuiz accepts every reply shape the models have been seen to produce.
type rawQuiz struct {
	Question      string          `json:"question"`
	Options       json.RawMessage `json:"options"`
	OptionA       string          `json:"option_a"`
	OptionB       string          `json:"option_b"`
	OptionC       string          `json:"option_c"`
	OptionD       string          `json:"option_d"`
	Answer        string          `json:"answer"`
	CorrectOption string          `json:"correct_option"`
	CorrectAnswer string          `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
}

type rawQuizSet struct {
	Quizzes []rawQuiz `json:"quizzes"`
}

// Normalize decodes a generation reply into candidates. The reply may be an
// object with a "quizzes" array or a bare array. Entries that fail Valid
// are dropped. A reply that cannot be decoded wraps llm.ErrMalformedReply.
func Normalize(reply []byte) ([]Candidate, error) {
	reply = bytes.TrimSpace(reply)
	var raws []rawQuiz
	switch {
	case len(reply) == 0:
		return nil, fmt.Errorf("%w: empty reply", llm.ErrMalformedReply)
	case reply[0] == '[':
		if err := json.Unmarshal(reply, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", llm.ErrMalformedReply, err)
		}
	default:
		var set rawQuizSet
		if err := json.Unmarshal(reply, &set); err != nil {
			return nil, fmt.Errorf("%w: %v", llm.ErrMalformedReply, err)
		}
		raws = set.Quizzes
	}

	out := make([]Candidate, 0, len(raws))
	for _, r := range raws {
		c, ok := r.candidate()
		if !ok || !Valid(c) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r rawQuiz) candidate() (Candidate, bool) {
	q := strings.TrimSpace(r.Question)
	if q == "" {
		return Candidate{}, false
	}
	opts := [4]string{r.OptionA, r.OptionB, r.OptionC, r.OptionD}
	fillOptions(&opts, r.Options)
	for i := range opts {
		opts[i] = strings.TrimSpace(opts[i])
	}

	answer := r.Answer
	if answer == "" {
		answer = r.CorrectOption
	}
	if answer == "" {
		answer = r.CorrectAnswer
	}

	explanation := strings.TrimSpace(r.Explanation)
	if explanation == "" {
		explanation = DefaultExplanation
	}

	return Candidate{
		Question:    q,
		OptionA:     opts[0],
		OptionB:     opts[1],
		OptionC:     opts[2],
		OptionD:     opts[3],
		Answer:      NormalizeAnswer(answer, opts),
		Explanation: explanation,
	}, true
}

// fillOptions reads an "options" field given as a label map or a list.
// Explicit option_x fields win.
func fillOptions(opts *[4]string, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var byLabel map[string]string
	if err := json.Unmarshal(raw, &byLabel); err == nil {
		for k, v := range byLabel {
			if i := labelIndex(k); i >= 0 && opts[i] == "" {
				opts[i] = v
			}
		}
		return
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for i := 0; i < len(list) && i < len(opts); i++ {
			if opts[i] == "" {
				opts[i] = list[i]
			}
		}
	}
}

var labelNoise = regexp.MustCompile(`(?i)^\s*(?:option|answer)?[\s:(]*|[\s).:]+$`)

// NormalizeAnswer maps a raw answer to one of A-D. It accepts a bare label
// in any case, decorated labels like "b)" or "Option C", and the exact text
// of one of the options. Anything else maps to "A".
func NormalizeAnswer(raw string, opts [4]string) string {
	s := strings.TrimSpace(raw)
	if i := labelIndex(s); i >= 0 {
		return Labels[i]
	}
	if i := labelIndex(labelNoise.ReplaceAllString(s, "")); i >= 0 {
		return Labels[i]
	}
	if s != "" {
		for i, o := range opts {
			if strings.EqualFold(s, strings.TrimSpace(o)) {
				return Labels[i]
			}
		}
	}
	return Labels[0]
}

func labelIndex(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "OPTION_A":
		return 0
	case "B", "OPTION_B":
		return 1
	case "C", "OPTION_C":
		return 2
	case "D", "OPTION_D":
		return 3
	}
	return -1
}
