package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/pkg/remotte"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// eventRecord is the JSON shape of one event line.
type eventRecord struct {
	Seq    uint64 `json:"seq"`
	TsUs   int64  `json:"ts_us"`
	LinkID string `json:"link_id,omitempty"`
	Type   string `json:"type"`
	Event  string `json:"event,omitempty"`
	Source string `json:"source,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// eventPrinter renders session events, one per line.
type eventPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format string

	label *color.Color
	good  *color.Color
	warn  *color.Color
	bad   *color.Color
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newEventPrinter(w io.Writer, format string) (*eventPrinter, error) {
	if format != formatText && format != formatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be %s or %s)", format, formatText, formatJSON)
	}

	p := &eventPrinter{
		w:      w,
		format: format,
		label:  color.New(color.FgCyan, color.Bold),
		good:   color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		bad:    color.New(color.FgRed),
	}
	colored := isTerminal(w) && !color.NoColor
	for _, c := range []*color.Color{p.label, p.good, p.warn, p.bad} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p, nil
}

// Print writes e. It is safe to call from the event dispatcher.
func (p *eventPrinter) Print(e remotte.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == formatJSON {
		p.printJSON(e)
		return
	}

	if e.Kind == remotte.EventConnection {
		c := p.warn
		switch e.Connection {
		case sensor.Connected:
			c = p.good
		case sensor.Disconnected:
			c = p.bad
		}
		fmt.Fprintln(p.w, c.Sprint(e.Connection.String()))
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.label.Sprintf("%-13s", e.Reading.Source()), readingText(e.Reading))
}

func readingText(r sensor.Reading) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}

func (p *eventPrinter) printJSON(e remotte.Event) {
	rec := eventRecord{
		Seq:    e.Seq,
		TsUs:   e.TsUs,
		LinkID: e.LinkID,
	}
	if e.Kind == remotte.EventConnection {
		rec.Type = "connection"
		rec.Event = e.Connection.String()
	} else {
		rec.Type = "reading"
		rec.Source = e.Reading.Source()
		rec.Value = e.Reading
		if attr, ok := e.Reading.(sensor.AttributeReading); ok {
			rec.Value = attr.String()
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(p.w, "{\"type\":\"error\",\"error\":%q}\n", err.Error())
		return
	}
	fmt.Fprintln(p.w, string(data))
}
