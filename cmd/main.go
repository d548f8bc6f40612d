package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-chat/internal/chromemdb"
	"document-chat/internal/chunker"
	"document-chat/internal/config"
	"document-chat/internal/console"
	"document-chat/internal/db"
	"document-chat/internal/embedding"
	"document-chat/internal/helper"
	"document-chat/internal/llmservice"
	"document-chat/internal/parser"
	"document-chat/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Document to process before the chat starts")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk -file, print the chunks and exit")
	noSpinner := flag.Bool("no-spinner", false, "Disable the progress spinner")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Int("errors", len(errs)).Msg("Invalid config")
	}
	if err := helper.SetupLogger(cfg.LogLevel, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Error setting up logger")
	}

	if *dryRun {
		if *filePath == "" {
			log.Fatal().Msg("Please provide a document using the -file flag")
		}
		if err := chunkFile(os.Stdout, *filePath, cfg); err != nil {
			log.Fatal().Err(err).Msg("Error chunking document")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *filePath, !*noSpinner, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Chat ended with an error")
	}
}

// chunkFile extracts and splits path without touching any model and writes
// the chunks to w as JSON.
func chunkFile(w io.Writer, path string, cfg *config.Config) error {
	text, err := parser.LoadFile(path)
	if err != nil {
		return err
	}
	splitter, err := chunker.New(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}
	chunks, err := chunker.Split(splitter, text, filepath.Base(path))
	if err != nil {
		return err
	}
	log.Info().Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(w, chunks)
	return nil
}

// run builds the session and chats over in/out until the user leaves or ctx
// is cancelled. A startup document that cannot be processed is reported like
// an /upload failure and the chat starts without it.
func run(ctx context.Context, cfg *config.Config, filePath string, spinner bool, in io.Reader, out io.Writer) error {
	log.Debug().Str("model", cfg.LLM.Model).Str("embedder", cfg.EmbedLLM.Model).Str("store", cfg.VectorStore.Type).Msg("Loaded config")

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		return err
	}

	sessionID, err := helper.GenerateSessionID()
	if err != nil {
		return err
	}

	index, closeIndex, err := newIndex(ctx, cfg, embedder, sessionID)
	if err != nil {
		return err
	}
	defer closeIndex()

	llm, err := llmservice.NewClient(&cfg.LLM)
	if err != nil {
		return err
	}

	splitter, err := chunker.New(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}

	session := rag.NewSession(sessionID, index, llm, splitter, rag.Options{
		TopK:        cfg.RAG.TopK,
		DefaultInfo: cfg.RAG.DefaultInfo,
	})
	defer func() {
		if err := session.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Error closing session")
		}
	}()

	chat := console.New(session, in, out, spinner)
	if filePath != "" {
		chat.Upload(ctx, filePath)
	}
	return chat.Run(ctx)
}

// newIndex builds the session's retrieval index. The returned func releases
// any connection it holds.
func newIndex(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder, sessionID string) (rag.Index, func(), error) {
	switch cfg.VectorStore.Type {
	case "pgvector":
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.InitDB(ctx, bunDB, cfg.Database.VectorDim); err != nil {
			bunDB.Close()
			return nil, nil, err
		}
		return db.NewStore(bunDB, embedder, sessionID), func() { bunDB.Close() }, nil
	default:
		if err := helper.CreateFolder(cfg.VectorStore.Path); err != nil {
			return nil, nil, err
		}
		m, err := chromemdb.NewVectorDBManager(cfg.VectorStore.Path, sessionID, cfg.VectorStore.Compress, embedder)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	}
}
