// Package probe implements a disposable memory load generator: it
// allocates a buffer of a requested size, writes into every eight-byte
// slot to commit the pages, holds the memory for a fixed duration, and
// releases it. Schedulers and resource controllers under test observe
// the process from outside, so the console lines and the exit status
// are the interface and must stay stable.
package probe

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	// DefaultBytes is the request size used when no size argument is
	// given.
	DefaultBytes int64 = 100000000

	// DefaultHold is how long the committed memory is held when no
	// hold argument is given.
	DefaultHold = 30 * time.Second

	// FillValue is written into every slot during the commit phase.
	FillValue = 1.0
)

// ErrNotAllocated reports that the requested buffer could not be
// reserved. It maps to exit status 1 at the process boundary.
var ErrNotAllocated = errors.New("memory not allocated")

// Prober runs one allocate-fill-hold-release sequence.
type Prober struct {
	// Bytes is the requested buffer size.
	Bytes int64

	// Hold is how long the memory stays committed before release.
	Hold time.Duration

	// Out receives the console lines. Defaults to os.Stdout.
	Out io.Writer

	// Logger receives operational detail on stderr. The console lines
	// on Out are the contract; nothing is ever logged there.
	Logger *slog.Logger
}

// Run executes the sequence and returns nil when the memory was
// allocated, held, and freed, or ErrNotAllocated when the reservation
// was refused. The sequence is deliberately linear: announce, reserve,
// commit, hold, verdict. A termination by the operating system during
// the commit phase is not caught; an abnormal exit is as much a valid
// observation for the harness as the failure verdict.
func (p *Prober) Run() error {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fmt.Fprintf(out, "Memory to be allocated: %d\n", p.Bytes)

	buf, err := Alloc(p.Bytes)
	if err != nil {
		logger.Debug("allocation refused",
			slog.Int64("bytes", p.Bytes),
			slog.String("error", err.Error()),
		)
	}

	buf.Fill(FillValue)
	logger.Debug("buffer committed",
		slog.Int64("bytes", buf.Size()),
		slog.Int64("slots", buf.SlotCount()),
	)

	logger.Debug("holding", slog.Duration("hold", p.Hold))
	time.Sleep(p.Hold)

	if buf == nil {
		fmt.Fprintln(out, "Memory not allocated.")
		return ErrNotAllocated
	}

	fmt.Fprintln(out, "Memory successfully allocated.")
	if err := buf.Free(); err != nil {
		logger.Warn("release failed", slog.String("error", err.Error()))
	}
	fmt.Fprintln(out, "Memory successfully freed.")
	return nil
}
