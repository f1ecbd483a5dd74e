package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

// SystemInstruction is the fixed instruction prefixed to every generation
// request.
const SystemInstruction = "You are a helpful research assistant. " +
	"Answer using only the provided context. " +
	"If the answer is not in the context, say you do not know. " +
	"Answer in the same language as the question."

// Session holds the dialogue history and orchestrates one turn at a time:
// retrieve supporting context, call the generator, record the turn. At most
// one Ask may be in flight; history is only appended on success, so a failed
// turn leaves no trace.
type Session struct {
	retriever domain.Retriever
	generator domain.Generator
	topK      int
	log       *zap.Logger

	mu         sync.Mutex
	processing bool
	history    []domain.Turn
}

// New creates a session over a retriever and generator. topK is the number
// of context items retrieved per turn.
func New(retriever domain.Retriever, generator domain.Generator, topK int, log *zap.Logger) *Session {
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{retriever: retriever, generator: generator, topK: topK, log: log}
}

// Ask runs one conversation turn and returns the answer with the citations
// it was grounded on. A second Ask while one is in flight fails with
// ErrAlreadyProcessing.
func (s *Session) Ask(ctx context.Context, question string) (string, []domain.Citation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, domain.ErrEmptyQuestion
	}
	history, err := s.begin()
	if err != nil {
		return "", nil, err
	}
	defer s.end()

	results, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve context: %w", err)
	}
	contextTexts := make([]string, len(results))
	citations := make([]domain.Citation, len(results))
	for i, r := range results {
		contextTexts[i] = domain.ContextText(r.Payload)
		citations[i] = domain.Cite(r.Payload, r.Score)
	}

	// The generator call is the only suspension point of the turn; no index
	// or session lock is held across it.
	answer, err := s.generator.Generate(ctx, domain.GenerateRequest{
		System:   SystemInstruction,
		History:  history,
		Context:  contextTexts,
		Question: question,
	})
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w: %w", domain.ErrGenerationFailure, err)
	}

	s.append(domain.Turn{Question: question, Answer: answer, Citations: citations})
	s.log.Info("turn completed",
		zap.Int("context_items", len(results)),
		zap.Int("history_len", len(history)+1))
	return answer, citations, nil
}

// History returns a copy of the completed turns, oldest first.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// begin moves the session to the processing state and snapshots the history
// the turn will be composed against.
func (s *Session) begin() ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return nil, domain.ErrAlreadyProcessing
	}
	s.processing = true
	history := make([]domain.Turn, len(s.history))
	copy(history, s.history)
	return history, nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.processing = false
	s.mu.Unlock()
}

func (s *Session) append(turn domain.Turn) {
	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()
}
