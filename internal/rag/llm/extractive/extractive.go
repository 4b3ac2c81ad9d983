// Package extractive is the offline language model. It answers by quoting
// the context sentence that best covers the question's content words and
// refuses when no sentence covers at least half of them. It never adds text
// that is not in the context.
package extractive

import (
	"context"
	"regexp"
	"strings"

	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/llm"
)

const (
	NoInformation = "I don't have that information available."
	minCoverage   = 0.5
)

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}]+`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the is are was were be been being am do does did what which who whom
		whose when where why how many much of in on at to for from with about and or but not have has had
		his her their its it s i you he she they we me my your our this that these those there any some can
		could would should will tell know me please`) {
		stopwords[w] = struct{}{}
	}
}

type Model struct{}

func New() llm.Provider {
	return Model{}
}

func (Model) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ragErrors.FromProvider(llm.Step, err)
	}
	contextText, question := parsePrompt(prompt)
	return answer(contextText, question), nil
}

// parsePrompt reads the sections of the portfolio prompt template.
func parsePrompt(prompt string) (contextText, question string) {
	const (
		contextMark  = "Context:\n"
		questionMark = "\n\nQuestion: "
		answerMark   = "\n\nHelpful Answer:"
	)
	q := strings.LastIndex(prompt, questionMark)
	if q < 0 {
		return prompt, prompt
	}
	question = prompt[q+len(questionMark):]
	if a := strings.Index(question, answerMark); a >= 0 {
		question = question[:a]
	}
	if c := strings.Index(prompt, contextMark); c >= 0 && c < q {
		contextText = prompt[c+len(contextMark) : q]
	}
	return contextText, question
}

func answer(contextText, question string) string {
	want := terms(question)
	if len(want) == 0 {
		return NoInformation
	}
	best, bestScore := "", 0.0
	for _, sentence := range sentencePattern.FindAllString(contextText, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		have := terms(sentence)
		hits := 0
		for t := range want {
			if _, ok := have[t]; ok {
				hits++
			}
		}
		if score := float64(hits) / float64(len(want)); score > bestScore {
			best, bestScore = sentence, score
		}
	}
	if bestScore < minCoverage {
		return NoInformation
	}
	return best
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		out[w] = struct{}{}
	}
	return out
}
