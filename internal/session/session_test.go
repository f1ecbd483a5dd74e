package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

type fakeRetriever struct {
	results []domain.SearchResult
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	answer   string
	err      error
	requests []domain.GenerateRequest

	started chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func passageResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: 0, Score: 0.91, Payload: domain.PassagePayload{Text: "first passage", Source: "book.pdf", Page: 3}},
		{ID: 1, Score: 0.72, Payload: domain.PassagePayload{Text: "second passage", Source: "book.pdf", Page: 9}},
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	ret := &fakeRetriever{}
	s := New(ret, &fakeGenerator{answer: "x"}, 2, nil)

	_, _, err := s.Ask(context.Background(), "   \t ")
	require.ErrorIs(t, err, domain.ErrEmptyQuestion)
	require.Empty(t, s.History())
	require.Zero(t, ret.calls, "retrieval must not run for an empty question")
}

func TestAskRecordsTurn(t *testing.T) {
	gen := &fakeGenerator{answer: "the answer"}
	s := New(&fakeRetriever{results: passageResults()}, gen, 2, nil)

	answer, citations, err := s.Ask(context.Background(), " what happened? ")
	require.NoError(t, err)
	require.Equal(t, "the answer", answer)
	require.Equal(t, []domain.Citation{
		{Source: "book.pdf", Page: 3, Score: 0.91},
		{Source: "book.pdf", Page: 9, Score: 0.72},
	}, citations)

	history := s.History()
	require.Len(t, history, 1)
	require.Equal(t, "what happened?", history[0].Question)
	require.Equal(t, "the answer", history[0].Answer)
	require.Equal(t, citations, history[0].Citations)
}

func TestAskComposesGenerateRequest(t *testing.T) {
	gen := &fakeGenerator{answer: "a"}
	s := New(&fakeRetriever{results: passageResults()}, gen, 2, nil)

	_, _, err := s.Ask(context.Background(), "q1")
	require.NoError(t, err)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	require.Equal(t, SystemInstruction, req.System)
	require.Empty(t, req.History)
	require.Equal(t, []string{"first passage", "second passage"}, req.Context)
	require.Equal(t, "q1", req.Question)
}

func TestThirdAskSeesBothPriorTurnsVerbatim(t *testing.T) {
	gen := &fakeGenerator{answer: "a"}
	s := New(&fakeRetriever{results: passageResults()}, gen, 2, nil)

	ctx := context.Background()
	_, _, err := s.Ask(ctx, "q1")
	require.NoError(t, err)
	_, _, err = s.Ask(ctx, "q2")
	require.NoError(t, err)
	_, _, err = s.Ask(ctx, "q3")
	require.NoError(t, err)

	require.Len(t, s.History(), 3)
	third := gen.requests[2]
	require.Len(t, third.History, 2)
	require.Equal(t, s.History()[:2], third.History)
	require.Equal(t, "q1", third.History[0].Question)
	require.Equal(t, "q2", third.History[1].Question)
}

func TestGenerationFailureLeavesNoPartialTurn(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	s := New(&fakeRetriever{results: passageResults()}, gen, 2, nil)

	_, _, err := s.Ask(context.Background(), "q")
	require.ErrorIs(t, err, domain.ErrGenerationFailure)
	require.Empty(t, s.History())

	// the session returned to idle: a later ask succeeds
	gen.err = nil
	gen.answer = "recovered"
	answer, _, err := s.Ask(context.Background(), "q again")
	require.NoError(t, err)
	require.Equal(t, "recovered", answer)
	require.Len(t, s.History(), 1)
}

func TestRetrievalFailureLeavesNoPartialTurn(t *testing.T) {
	ret := &fakeRetriever{err: domain.ErrIndexNotReady}
	s := New(ret, &fakeGenerator{answer: "x"}, 2, nil)

	_, _, err := s.Ask(context.Background(), "q")
	require.ErrorIs(t, err, domain.ErrIndexNotReady)
	require.Empty(t, s.History())
}

func TestConcurrentAskIsRejected(t *testing.T) {
	gen := &fakeGenerator{
		answer:  "slow answer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(&fakeRetriever{results: passageResults()}, gen, 2, nil)

	done := make(chan error, 1)
	go func() {
		_, _, err := s.Ask(context.Background(), "first")
		done <- err
	}()
	<-gen.started

	_, _, err := s.Ask(context.Background(), "second")
	require.ErrorIs(t, err, domain.ErrAlreadyProcessing)

	close(gen.release)
	require.NoError(t, <-done)
	require.Len(t, s.History(), 1)
}
