package hostbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const maxLineSize = 1 << 20

// PipeHost implements Host over a line-oriented pipe. Console commands are
// written as ["exec", "<cmd>"] lines for the shim to run; responses share the
// same writer.
type PipeHost struct {
	mu  sync.Mutex
	w   io.Writer
	log *slog.Logger

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
	stopped  bool
}

func NewPipeHost(w io.Writer, log *slog.Logger) *PipeHost {
	if log == nil {
		log = slog.Default()
	}
	return &PipeHost{
		w:      w,
		log:    log.With("component", "hostbridge"),
		timers: make(map[*time.Timer]struct{}),
	}
}

func (p *PipeHost) ExecuteCommand(cmd string) {
	data, _ := json.Marshal([]string{"exec", cmd})
	if err := p.WriteLine(string(data)); err != nil {
		p.log.Error("Failed to send command to host", "command", cmd, "error", err)
		return
	}
	p.log.Debug("Sent command to host", "command", cmd)
}

// EquipLoadout asks the shim to equip a preset, as a ["loadout", "<name>"] line.
func (p *PipeHost) EquipLoadout(name string) {
	data, _ := json.Marshal([]string{"loadout", name})
	if err := p.WriteLine(string(data)); err != nil {
		p.log.Error("Failed to send loadout to host", "loadout", name, "error", err)
		return
	}
	p.log.Debug("Sent loadout to host", "loadout", name)
}

// SetTimeout schedules fn on a timer. Timers still pending at Stop never fire.
func (p *PipeHost) SetTimeout(fn func(), delay time.Duration) {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()
	if p.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		p.timersMu.Lock()
		_, pending := p.timers[t]
		delete(p.timers, t)
		p.timersMu.Unlock()
		if pending {
			fn()
		}
	})
	p.timers[t] = struct{}{}
}

// Pending reports how many timeouts have not fired yet.
func (p *PipeHost) Pending() int {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()
	return len(p.timers)
}

// Stop cancels every pending timeout.
func (p *PipeHost) Stop() {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()
	p.stopped = true
	for t := range p.timers {
		t.Stop()
		delete(p.timers, t)
	}
}

// WriteLine writes one newline-terminated line.
func (p *PipeHost) WriteLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, line+"\n"); err != nil {
		return fmt.Errorf("writing to host pipe: %w", err)
	}
	return nil
}

// Serve reads request lines from r until EOF or ctx is done, answering each
// through host. Blank lines are ignored.
func Serve(ctx context.Context, r io.Reader, host *PipeHost, b *Bridge) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			errc <- err
			close(lines)
		}()
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		err = sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("reading host pipe: %w", err)
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := host.WriteLine(b.Handle(line)); err != nil {
				return err
			}
		}
	}
}
