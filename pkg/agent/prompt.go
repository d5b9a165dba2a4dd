package agent

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Prompter serves operator console input without ever blocking the
// dispatch goroutine. A dedicated goroutine reads lines; each completed
// line is matched to the oldest pending request and delivered back through
// the loop's task queue, preserving the single-writer model.
type Prompter struct {
	out  io.Writer
	post func(func())

	mu      sync.Mutex
	pending []func(string)
}

// NewPrompter starts reading lines from r. Deliveries are funneled through
// post (normally Loop.Post).
func NewPrompter(r io.Reader, w io.Writer, post func(func())) *Prompter {
	p := &Prompter{out: w, post: post}
	go p.read(r)
	return p
}

// Request prints the prompt lines and registers deliver to receive the next
// operator input line on the dispatch goroutine. Requests are served in
// FIFO order.
func (p *Prompter) Request(deliver func(string), promptLines ...string) {
	for _, line := range promptLines {
		fmt.Fprintln(p.out, line)
	}
	p.mu.Lock()
	p.pending = append(p.pending, deliver)
	p.mu.Unlock()
}

func (p *Prompter) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		p.mu.Lock()
		if len(p.pending) == 0 {
			p.mu.Unlock()
			slog.Debug("ignoring console input, nothing pending")
			continue
		}
		deliver := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()

		p.post(func() { deliver(line) })
	}
}
