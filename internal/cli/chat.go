// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Consultant chat: one-shot messages and an interactive REPL.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/aspire/internal/config"
	"github.com/jeranaias/aspire/internal/conversation"
	"github.com/jeranaias/aspire/internal/model"
)

const chatUsage = `aspire chat --owner u123 "How should I price my catering menu?"`

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads one line of user input.
type LineReader interface {
	ReadInput(prompt string) (string, error)
	Close() error
}

// linerReader provides line editing and persistent history on a terminal.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}

	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with 0600 permissions and restores the terminal.
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// scanReader reads lines from a non-terminal input such as a pipe.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	return &scanReader{scanner: bufio.NewScanner(in)}
}

func (r *scanReader) ReadInput(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// newLineReader picks liner for an interactive stdin and a scanner otherwise.
func newLineReader(in io.Reader) LineReader {
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		return newLinerReader()
	}
	return newScanReader(in)
}

// =============================================================================
// COMMAND
// =============================================================================

// HandleChat sends one message, or starts an interactive session when no
// message is given.
func HandleChat(ctx context.Context, env *Env, args Args) error {
	owner := args.Flags.Flag("owner")
	if owner == "" {
		return ErrMissingArgument("--owner", chatUsage)
	}

	session := &chatSession{
		manager:        env.Manager(),
		owner:          owner,
		conversationID: args.Flags.Flag("conversation"),
		out:            newPrinter(env.Out),
		errOut:         env.Err,
		quiet:          args.Quiet,
	}

	message := args.Flags.Flag("message")
	if message == "" {
		message = JoinPositionalArgs(args.Flags, 0)
	}
	if message != "" {
		return session.oneShot(ctx, message, args.JSON)
	}

	if args.JSON {
		return NewValidationError("--json", "", "interactive chat has no JSON mode; pass a message")
	}

	reader := newLineReader(env.In)
	defer reader.Close()
	return session.repl(ctx, reader)
}

// chatSession is the state of one chat command.
type chatSession struct {
	manager        *conversation.Manager
	owner          string
	conversationID string
	out            *printer
	errOut         io.Writer
	quiet          bool
	exchanges      int
}

// send delivers one message and adopts the reply's conversation.
func (s *chatSession) send(ctx context.Context, message string) (conversation.Reply, error) {
	reply, err := s.manager.Chat(ctx, s.owner, message, s.conversationID)
	if reply.ConversationID != "" {
		s.conversationID = reply.ConversationID
	}
	if err != nil {
		return conversation.Reply{}, err
	}
	s.conversationID = reply.ConversationID
	s.exchanges++
	return reply, nil
}

func (s *chatSession) oneShot(ctx context.Context, message string, jsonMode bool) error {
	reply, err := s.send(ctx, message)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("chat", reply).Print(s.out.w)
	}
	s.out.Markdown(reply.Message)
	if !s.quiet {
		fmt.Fprintf(s.errOut, "Conversation: %s\n", reply.ConversationID)
	}
	return nil
}

// repl runs the interactive loop until /quit, EOF or Ctrl+C.
// Provider failures are reported and the session continues.
func (s *chatSession) repl(ctx context.Context, reader LineReader) error {
	if !s.quiet {
		s.out.Line(TitleStyle, "aspire consultant chat")
		s.out.Line(DimStyle, "Type /help for commands, /quit to exit.")
		fmt.Fprintln(s.out.w)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		input, err := reader.ReadInput("you> ")
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				return fmt.Errorf("failed to read input: %w", err)
			}
			s.printSummary()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleSlashCommand(ctx, input)
			if err != nil {
				DisplayError(s.errOut, "chat", err, false)
			}
			if !keepGoing {
				s.printSummary()
				return nil
			}
			continue
		}

		reply, err := s.send(ctx, input)
		if err != nil {
			DisplayError(s.errOut, "chat", err, false)
			continue
		}
		s.out.Turn(model.RoleAssistant, reply.Message)
	}
}

// handleSlashCommand runs a REPL command and reports whether to keep going.
func (s *chatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	cmd, rest, _ := strings.Cut(input, " ")
	switch strings.ToLower(cmd) {
	case "/quit", "/exit", "/q":
		return false, nil
	case "/help", "/?":
		fmt.Fprintln(s.out.w, "  /new           Start a new conversation")
		fmt.Fprintln(s.out.w, "  /history       Show this conversation")
		fmt.Fprintln(s.out.w, "  /id            Show the conversation ID")
		fmt.Fprintln(s.out.w, "  /open ID       Continue an existing conversation")
		fmt.Fprintln(s.out.w, "  /quit          Exit")
		return true, nil
	case "/new":
		s.conversationID = ""
		s.out.Line(DimStyle, "Started a new conversation.")
		return true, nil
	case "/id":
		if s.conversationID == "" {
			s.out.Line(DimStyle, "No conversation yet.")
		} else {
			fmt.Fprintln(s.out.w, s.conversationID)
		}
		return true, nil
	case "/history":
		if s.conversationID == "" {
			s.out.Line(DimStyle, "No messages yet.")
			return true, nil
		}
		turns, err := s.manager.History(ctx, s.owner, s.conversationID)
		if err != nil {
			return true, err
		}
		s.out.Turns(turns)
		return true, nil
	case "/open":
		id := strings.TrimSpace(rest)
		if id == "" {
			return true, ErrMissingArgument("conversation ID", "/open 3f2a...")
		}
		if _, err := s.manager.History(ctx, s.owner, id); err != nil {
			return true, err
		}
		s.conversationID = id
		s.out.Line(DimStyle, "Continuing conversation "+id)
		return true, nil
	default:
		return true, NewValidationError("command", cmd, "unknown chat command (try /help)")
	}
}

func (s *chatSession) printSummary() {
	if s.quiet || s.exchanges == 0 {
		return
	}
	fmt.Fprintln(s.out.w)
	s.out.Line(DimStyle, fmt.Sprintf("%d message(s) sent. Conversation: %s", s.exchanges, s.conversationID))
}
