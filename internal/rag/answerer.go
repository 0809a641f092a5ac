package rag

import (
	"context"
	"fmt"
	"strings"
)

// MinSimilarity is the retrieval gate for grounded answering. A top hit
// scoring below this is treated as "no relevant context" and the question
// is refused rather than answered from weak evidence.
const MinSimilarity = 0.50

// RefusalAnswer is the exact text returned whenever a question cannot be
// answered from the indexed documents. The grounding prompt instructs the
// model to emit the same string, so callers can rely on it verbatim.
const RefusalAnswer = "I do not have enough information to answer this question."

// answerTemperature keeps generation near-deterministic; grounded answers
// should restate the context, not improvise around it.
const answerTemperature = 0.2

// groundingPrompt constrains the model to the retrieved context. The two
// format arguments are the context snippet and the user's question.
const groundingPrompt = `ROLE:
You are an assistant that answers questions precisely and responsibly.

GROUNDING RULES:
1. Use EXCLUSIVELY the content of the CONTEXT section below.
2. Do NOT invent information and do NOT rely on prior knowledge.
3. Do NOT combine information from different documents.
4. If the context does not contain the answer, reply EXACTLY:
"I do not have enough information to answer this question."

SAFETY:
1. No opinions, stereotypes, or offensive language.
2. Do not surface sensitive information that is not explicitly in the context.
3. Answer in a neutral, objective tone.

FORMAT:
- At most 3 sentences, clear and concise.

CONTEXT:
%s

QUESTION:
%s

ANSWER:`

// GroundedAnswerer answers questions using retrieved document context only.
// It retrieves the single best chunk, gates on similarity, and runs a
// low-temperature generation constrained by the grounding prompt.
type GroundedAnswerer struct {
	// searcher retrieves candidate context for the question.
	searcher Searcher

	// generator runs the constrained completion.
	generator Generator
}

// NewGroundedAnswerer constructs a GroundedAnswerer from the given Searcher
// and Generator.
func NewGroundedAnswerer(searcher Searcher, generator Generator) (*GroundedAnswerer, error) {
	if searcher == nil {
		return nil, fmt.Errorf("rag: searcher must not be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("rag: generator must not be nil")
	}
	return &GroundedAnswerer{searcher: searcher, generator: generator}, nil
}

// AnswerQuestion produces a grounded answer for the question.
//
// Outcomes:
//   - no retrieval hit, or top score below MinSimilarity → refusal with
//     Grounded false and no context attached;
//   - model returns empty output → refusal with Grounded false, but the
//     context and score that were offered to the model are reported;
//   - otherwise → the model's answer with Grounded true.
//
// Retrieval and generation failures are returned as errors; a refusal is a
// successful outcome, not an error.
func (a *GroundedAnswerer) AnswerQuestion(ctx context.Context, question string) (*Answer, error) {
	results, err := a.searcher.Search(ctx, question, 1)
	if err != nil {
		return nil, fmt.Errorf("rag: retrieval for answer failed: %w", err)
	}

	if len(results) == 0 || results[0].SimilarityScore < MinSimilarity {
		return &Answer{Answer: RefusalAnswer, Grounded: false}, nil
	}

	top := results[0]
	prompt := fmt.Sprintf(groundingPrompt, top.ContentSnippet, question)

	text, err := a.generator.Generate(ctx, prompt, answerTemperature)
	if err != nil {
		return nil, fmt.Errorf("rag: answer generation failed: %w", err)
	}

	text = strings.TrimSpace(text)
	answer := &Answer{
		Answer:          text,
		Grounded:        text != "",
		ContextUsed:     &top.ContentSnippet,
		SimilarityScore: &top.SimilarityScore,
	}
	if text == "" {
		answer.Answer = RefusalAnswer
	}

	return answer, nil
}
