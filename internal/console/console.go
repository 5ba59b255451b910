// Package console is the interactive text front end. Reminders are printed
// above the prompt as they fire.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/tnikhil-24/ElderCare/internal/engine"
)

// Conversation is the part of the engine the console talks to.
type Conversation interface {
	Greeting() string
	HandleTurn(ctx context.Context, text string) engine.Reply
}

type lineReader interface {
	Readline() (string, error)
}

type Console struct {
	rl *readline.Instance

	mu  sync.Mutex
	out io.Writer
}

// New opens a readline prompt on the terminal. historyFile may be empty.
func New(historyFile string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "You: ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "goodbye",
		HistorySearchFold: true,

		Stdin:  readline.NewCancelableStdin(os.Stdin),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &Console{rl: rl, out: rl}, nil
}

// Deliver prints a reminder without disturbing the line being typed.
func (c *Console) Deliver(_ context.Context, a engine.Announcement) error {
	return c.say("Reminder", a.Text)
}

func (c *Console) say(who, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s: %s\n", who, text)
	return err
}

// Run greets the user and answers lines until goodbye, Ctrl+D or ctx ends.
func (c *Console) Run(ctx context.Context, conv Conversation) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.rl.Close()
		case <-stop:
		}
	}()
	defer c.rl.Close()
	return c.loop(ctx, conv, c.rl)
}

func (c *Console) loop(ctx context.Context, conv Conversation, in lineReader) error {
	if err := c.say("ElderCare", conv.Greeting()); err != nil {
		return err
	}
	for {
		line, err := in.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return c.say("ElderCare", "Goodbye! Take care of yourself.")
			}
			continue
		case errors.Is(err, io.EOF):
			return c.say("ElderCare", "Goodbye! Take care of yourself.")
		case err != nil:
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		reply := conv.HandleTurn(ctx, line)
		if err := c.say("ElderCare", reply.Text); err != nil {
			return err
		}
		if reply.Goodbye {
			return nil
		}
	}
}
