package dialogue

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"
)

// ConsoleEngine is a text stand-in for the voice pipeline: it prints agent
// lines and reads callee lines, honoring the same listen-timeout contract.
// Useful for dry-running the call flow without telephony or audio.
type ConsoleEngine struct {
	out   io.Writer
	lines chan string
}

func NewConsoleEngine(in io.Reader, out io.Writer) *ConsoleEngine {
	c := &ConsoleEngine{
		out:   out,
		lines: make(chan string),
	}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			c.lines <- sc.Text()
		}
	}()
	return c
}

func (c *ConsoleEngine) WaitForConnection(_ context.Context) error {
	fmt.Fprintln(c.out, "-- console engine connected --")
	return nil
}

func (c *ConsoleEngine) Say(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.out, "agent> %s\n", text)
	return err
}

func (c *ConsoleEngine) Listen(ctx context.Context, timeout time.Duration) (*Utterance, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case line, ok := <-c.lines:
		if !ok {
			// input closed; same outcome as silence
			return nil, nil
		}
		return &Utterance{Text: line}, nil
	case <-t.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
