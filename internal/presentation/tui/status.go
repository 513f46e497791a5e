package tui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Status prints progress lines for long steps, such as
// "Cleaning up page memory... Done". On a terminal the result overwrites the
// pending line; otherwise it is appended.
type Status struct {
	mu      sync.Mutex
	w       io.Writer
	out     *termenv.Output
	tty     bool
	pending string
}

// NewStatus writes to w. Colour and line rewriting are enabled only when w
// is a terminal.
func NewStatus(w io.Writer) *Status {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	opts := []termenv.OutputOption{}
	if !tty {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Status{
		w:   w,
		out: termenv.NewOutput(w, opts...),
		tty: tty,
	}
}

// Begin prints msg without a newline.
func (s *Status) Begin(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = msg
	fmt.Fprint(s.w, msg)
}

// End completes the pending line with Done or Failed.
func (s *Status) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.out.String("Done").Foreground(s.out.Color("2"))
	if err != nil {
		result = s.out.String("Failed").Foreground(s.out.Color("1"))
	}
	if s.tty {
		fmt.Fprintf(s.w, "\r%s %s\n", s.pending, result)
	} else {
		fmt.Fprintf(s.w, " %s\n", result)
	}
	s.pending = ""
}

// Line prints a standalone message.
func (s *Status) Line(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, ">>> %s\n", fmt.Sprintf(format, args...))
}
