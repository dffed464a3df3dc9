package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Evaluation is the structured verdict on one candidate answer.
type Evaluation struct {
	Score        int      `json:"score"`
	Confidence   int      `json:"confidence"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Improvements []string `json:"improvements"`
	Verdict      string   `json:"verdict"`
	Feedback     string   `json:"feedback"`
}

func evaluationPrompt(question, answer string) string {
	return fmt.Sprintf(`Act as a strict senior technical interviewer.

Rules:
- Do NOT assume missing information.
- Evaluate ONLY from the candidate answer and interview question provided.
- If the answer is unclear, reduce the score; if incomplete, penalize heavily.
- Generic answers are weak answers.

Interview question:
"""%s"""

Candidate's answer:
"""%s"""

Return ONLY valid JSON:
{
  "score": number (0-10),
  "confidence": number (0-100),
  "strengths": [string],
  "weaknesses": [string],
  "improvements": [string],
  "verdict": "pass" | "fail",
  "feedback": "detailed explanation"
}

If the answer is irrelevant: score = 0, verdict = "fail".`, question, answer)
}

// parseEvaluation decodes the model output, tolerating fenced or padded JSON,
// and normalizes every field into its valid range.
func parseEvaluation(raw, answer string) (*Evaluation, error) {
	eval := &Evaluation{}
	if err := json.Unmarshal([]byte(raw), eval); err != nil {
		trimmed := strings.Trim(strings.TrimSpace(raw), "`")
		start := strings.IndexByte(trimmed, '{')
		end := strings.LastIndexByte(trimmed, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("evaluation is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), eval); err != nil {
			return nil, fmt.Errorf("decoding evaluation: %w", err)
		}
	}

	eval.Score = clamp(eval.Score, 0, 10)
	eval.Confidence = clamp(eval.Confidence, 0, 100)
	if eval.Strengths == nil {
		eval.Strengths = []string{}
	}
	if eval.Weaknesses == nil {
		eval.Weaknesses = []string{}
	}
	if eval.Improvements == nil {
		eval.Improvements = []string{}
	}
	if strings.ToLower(strings.TrimSpace(eval.Verdict)) == "pass" {
		eval.Verdict = "pass"
	} else {
		eval.Verdict = "fail"
	}

	// An empty answer can never pass, whatever the model said.
	if strings.TrimSpace(answer) == "" {
		eval.Score = 0
		eval.Verdict = "fail"
		if len(eval.Weaknesses) == 0 {
			eval.Weaknesses = []string{"No relevant answer provided."}
		}
		if eval.Feedback == "" {
			eval.Feedback = "The answer is missing or irrelevant."
		}
	}
	return eval, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
