package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/textsplitter"

	"document-chat/internal/chunker"
	"document-chat/internal/models"
	"document-chat/internal/parser"
)

var (
	ErrDocumentLoaded = errors.New("a document is already processed; start a new chat to load another")
	ErrEmptyDocument  = errors.New("no text could be extracted from the document")
)

// State is the dialogue state of a Session.
type State int

const (
	NoDocument State = iota
	DocumentProcessed
)

func (s State) String() string {
	switch s {
	case NoDocument:
		return "no-document-loaded"
	case DocumentProcessed:
		return "document-processed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Index is a similarity-search store scoped to one session.
type Index interface {
	AddChunks(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, k int) ([]models.Chunk, error)
	Reset(ctx context.Context) error
}

// Completer answers a role-tagged conversation.
type Completer interface {
	Complete(ctx context.Context, messages []llms.MessageContent) (string, error)
}

type Options struct {
	TopK        int
	DefaultInfo string
}

// Session holds the state of one conversation: its history, whether a
// document has been processed, and the index built from that document.
// A Session handles one interaction at a time and is not safe for concurrent use.
type Session struct {
	id       string
	state    State
	source   string
	history  []models.Turn
	index    Index
	llm      Completer
	splitter textsplitter.TextSplitter
	opts     Options
}

func NewSession(id string, index Index, llm Completer, splitter textsplitter.TextSplitter, opts Options) *Session {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.DefaultInfo == "" {
		opts.DefaultInfo = models.DefaultInfo
	}
	return &Session{
		id:       id,
		index:    index,
		llm:      llm,
		splitter: splitter,
		opts:     opts,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.state }

// Source is the name of the processed document, if any.
func (s *Session) Source() string { return s.source }

// History returns a copy of the turns so far, oldest first.
func (s *Session) History() []models.Turn {
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// ProcessDocument extracts, chunks and indexes an uploaded file and returns the
// number of chunks. Any failure leaves the session in its previous state.
func (s *Session) ProcessDocument(ctx context.Context, name string, data []byte) (int, error) {
	if s.state == DocumentProcessed {
		return 0, ErrDocumentLoaded
	}

	text, err := parser.Load(name, data)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Str("file", name).Msg("Document rejected")
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyDocument
	}

	chunks, err := chunker.Split(s.splitter, text, name)
	if err != nil {
		return 0, err
	}

	if err := s.index.AddChunks(ctx, chunks); err != nil {
		if resetErr := s.index.Reset(ctx); resetErr != nil {
			log.Error().Err(resetErr).Str("session", s.id).Msg("Error clearing partial index")
		}
		return 0, fmt.Errorf("index document: %w", err)
	}

	s.state = DocumentProcessed
	s.source = name
	log.Info().Str("session", s.id).Str("file", name).Int("chunks", len(chunks)).Msg("Document processed")
	return len(chunks), nil
}

// Prompt assembles the prompt for query without sending it.
func (s *Session) Prompt(ctx context.Context, query string) (Prompt, error) {
	p := Prompt{
		Instruction: models.DefaultSystemPrompt,
		Context:     defaultContext(s.opts.DefaultInfo),
		History:     s.History(),
		Query:       query,
	}
	if s.state != DocumentProcessed {
		return p, nil
	}

	chunks, err := s.index.Search(ctx, query, s.opts.TopK)
	if err != nil {
		return Prompt{}, fmt.Errorf("retrieve context: %w", err)
	}
	p.Instruction = models.UploadedDocSystemPrompt
	p.Context = retrievedContext(chunks)
	return p, nil
}

// Ask answers query and appends exactly one turn to the history. Retrieval
// and inference failures are reported in that turn's answer.
func (s *Session) Ask(ctx context.Context, query string) models.Turn {
	turn := models.Turn{Question: query}

	answer, err := s.answer(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("session", s.id).Msg("Error answering query")
		turn.Answer = models.ErrorAnswerTag + err.Error()
		turn.Err = true
	} else {
		turn.Answer = answer
	}

	s.history = append(s.history, turn)
	return turn
}

func (s *Session) answer(ctx context.Context, query string) (string, error) {
	p, err := s.Prompt(ctx, query)
	if err != nil {
		return "", err
	}
	log.Debug().Str("session", s.id).Str("state", s.state.String()).Str("prompt", p.String()).Msg("Assembled prompt")
	return s.llm.Complete(ctx, p.Messages())
}

// Reset starts a new chat: history and index are discarded and the session
// returns to NoDocument.
func (s *Session) Reset(ctx context.Context) error {
	s.history = nil
	s.state = NoDocument
	s.source = ""
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	log.Info().Str("session", s.id).Msg("New conversation started")
	return nil
}

// Close releases the session's index.
func (s *Session) Close(ctx context.Context) error {
	return s.index.Reset(ctx)
}
