package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/rag"
	"document-chat/internal/transcript"
)

const title = "AI Chat Demo"

// Chat is the session surface the console drives.
type Chat interface {
	ProcessDocument(ctx context.Context, name string, data []byte) (int, error)
	Ask(ctx context.Context, query string) models.Turn
	Reset(ctx context.Context) error
	History() []models.Turn
	State() rag.State
	Source() string
}

type Console struct {
	chat    Chat
	in      io.Reader
	out     io.Writer
	spinner bool

	user      *color.Color
	assistant *color.Color
	notice    *color.Color
	failure   *color.Color
}

func New(chat Chat, in io.Reader, out io.Writer, spinner bool) *Console {
	return &Console{
		chat:      chat,
		in:        in,
		out:       out,
		spinner:   spinner,
		user:      color.New(color.FgCyan, color.Bold),
		assistant: color.New(color.FgMagenta, color.Bold),
		notice:    color.New(color.FgGreen),
		failure:   color.New(color.FgRed),
	}
}

// Run reads lines until EOF, /quit or ctx is done. Cancelling ctx returns
// at once, even while waiting for input.
func (c *Console) Run(ctx context.Context) error {
	c.notice.Fprintf(c.out, "%s - type /help for commands\n", title)
	if c.chat.State() == rag.NoDocument {
		c.notice.Fprintln(c.out, "No document uploaded. Using default info...")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, readErr := c.readLines(ctx)
	for {
		c.user.Fprint(c.out, "You: ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return <-readErr
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// readLines scans c.in on its own goroutine. The lines channel is closed at
// EOF, after the scan error (possibly nil) has been sent on the error channel.
func (c *Console) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

func (c *Console) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		c.ask(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.help()
	case "/upload":
		c.Upload(ctx, arg)
	case "/new":
		if err := c.chat.Reset(ctx); err != nil {
			c.failure.Fprintf(c.out, "Error starting a new chat: %v\n", err)
			return false
		}
		c.notice.Fprintln(c.out, "New conversation started!")
	case "/history":
		c.history()
	case "/save":
		c.save(arg)
	default:
		c.failure.Fprintf(c.out, "Unknown command %s. Type /help for commands.\n", cmd)
	}
	return false
}

func (c *Console) help() {
	fmt.Fprintf(c.out, `Commands:
  /upload <path>  process a document (%s)
  /new            start a new chat
  /history        list the questions asked so far
  /save <path>    write the conversation to an HTML file
  /quit           leave
Without a document the assistant uses its default info; with one it answers from the document only.
`, strings.Join(parser.SupportedExtensions(), ", "))
}

// Upload processes the document at path and prints the outcome. Failures are
// reported and leave the chat usable.
func (c *Console) Upload(ctx context.Context, path string) {
	if path == "" {
		c.failure.Fprintln(c.out, "Usage: /upload <path>")
		return
	}
	if c.chat.State() == rag.DocumentProcessed {
		c.failure.Fprintf(c.out, "%v\n", rag.ErrDocumentLoaded)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.failure.Fprintf(c.out, "Error reading file: %v\n", err)
		return
	}

	var n int
	c.wait("Reading & Embedding your document...", func() {
		n, err = c.chat.ProcessDocument(ctx, filepath.Base(path), data)
	})
	if err != nil {
		c.failure.Fprintf(c.out, "%v\n", err)
		return
	}
	c.notice.Fprintf(c.out, "Document processed into %d sections!\n", n)
}

func (c *Console) ask(ctx context.Context, query string) {
	var turn models.Turn
	c.wait("Thinking...", func() {
		turn = c.chat.Ask(ctx, query)
	})

	c.assistant.Fprint(c.out, "Assistant: ")
	if turn.Err {
		c.failure.Fprintln(c.out, turn.Answer)
		return
	}
	fmt.Fprintln(c.out, turn.Answer)
}

func (c *Console) history() {
	turns := c.chat.History()
	if len(turns) == 0 {
		fmt.Fprintln(c.out, "No conversation history yet.")
		return
	}
	for i, t := range turns {
		fmt.Fprintf(c.out, "%d. You: %s\n", i+1, t.Question)
	}
}

func (c *Console) save(path string) {
	if path == "" {
		c.failure.Fprintln(c.out, "Usage: /save <path>")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		c.failure.Fprintf(c.out, "Error saving transcript: %v\n", err)
		return
	}
	defer f.Close()

	if err := transcript.Write(f, title, c.chat.Source(), c.chat.History()); err != nil {
		c.failure.Fprintf(c.out, "Error saving transcript: %v\n", err)
		return
	}
	c.notice.Fprintf(c.out, "Transcript saved to %s\n", path)
}

// wait runs fn while a spinner is shown. The bar animates itself and stops
// writing once Finish returns.
func (c *Console) wait(description string, fn func()) {
	if !c.spinner {
		fn()
		return
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetSpinnerChangeInterval(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
	)

	fn()
	if err := bar.Finish(); err != nil {
		log.Debug().Err(err).Msg("Error finishing spinner")
	}
}
