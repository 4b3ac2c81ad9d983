package rag

import (
	"strings"
	"text/template"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
)

// ContextSeparator sits between retrieved chunks in the prompt.
const ContextSeparator = "\n\n"

const promptText = `You are a friendly AI assistant helping people learn about {{.Topic}}.

Use the following pieces of context to answer the question. If you don't know the answer based on the provided context, just say that you don't have that information available.

Context:
{{.Context}}

Question: {{.Question}}

Helpful Answer:`

var promptTemplate = template.Must(template.New("portfolio_prompt").Parse(promptText))

type promptData struct {
	Topic    string
	Context  string
	Question string
}

// AssembleContext joins chunk texts in retrieval order. No results give an
// empty context.
func AssembleContext(results []commonModels.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, ContextSeparator)
}

// ComposePrompt fills the fixed template. Only the topic phrase differs
// between topics.
func ComposePrompt(topicPhrase string, context string, question string) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, promptData{Topic: topicPhrase, Context: context, Question: question})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
