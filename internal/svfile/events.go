package svfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sv/internal/sv"
)

// Event kinds in the event table.
const (
	KindLOH     = "LOH"
	KindHomLoss = "HOM_LOSS"
)

// EventColumns lists the event table header in write order.
var EventColumns = []string{"kind", "chr", "pos_start", "pos_end", "sv_start", "sv_end", "valid"}

// EventParser reads LOH and hom-loss events.
type EventParser struct {
	t *table
}

// NewEventParser opens an event table, plain or gzipped.
func NewEventParser(path string) (*EventParser, error) {
	t, err := openTable(path, "event")
	if err != nil {
		return nil, err
	}
	return newEventParser(t)
}

// NewEventParserFromReader creates a parser from an io.Reader.
func NewEventParserFromReader(r io.Reader) (*EventParser, error) {
	t, err := newTable(r, "event")
	if err != nil {
		return nil, err
	}
	return newEventParser(t)
}

func newEventParser(t *table) (*EventParser, error) {
	if err := t.require(EventColumns...); err != nil {
		t.Close()
		return nil, err
	}
	return &EventParser{t: t}, nil
}

// Close closes the parser and underlying file.
func (p *EventParser) Close() error {
	return p.t.Close()
}

type homLossRow struct {
	event *sv.HomLossEvent
	line  int
}

// ReadAll reads every event and nests each hom-loss event into the LOH event
// containing it. LOH events are returned sorted by chromosome and start.
func (p *EventParser) ReadAll() ([]*sv.LohEvent, error) {
	var lohs []*sv.LohEvent
	var homs []homLossRow
	t := p.t
	for {
		fields, err := t.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		chrom := t.field(fields, "chr")
		start, err := t.intField(fields, "pos_start", 0)
		if err != nil {
			return nil, err
		}
		end, err := t.intField(fields, "pos_end", 0)
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, t.errorf("pos_end %d before pos_start %d", end, start)
		}
		svStart, err := p.svRef(fields, "sv_start")
		if err != nil {
			return nil, err
		}
		svEnd, err := p.svRef(fields, "sv_end")
		if err != nil {
			return nil, err
		}
		valid, err := p.flag(fields, "valid")
		if err != nil {
			return nil, err
		}

		switch kind := strings.ToUpper(t.field(fields, "kind")); kind {
		case KindLOH:
			lohs = append(lohs, &sv.LohEvent{
				Chromosome: chrom, PosStart: start, PosEnd: end,
				SvStart: svStart, SvEnd: svEnd, Valid: valid,
			})
		case KindHomLoss:
			homs = append(homs, homLossRow{
				event: &sv.HomLossEvent{
					Chromosome: chrom, PosStart: start, PosEnd: end,
					SvStart: svStart, SvEnd: svEnd, Valid: valid,
				},
				line: t.lineNumber,
			})
		default:
			return nil, t.errorf("invalid kind: %s", kind)
		}
	}

	sv.SortLohEvents(lohs)
	for _, h := range homs {
		if !sv.NestHomLoss(lohs, h.event) {
			return nil, &ParseError{
				Kind:    t.kind,
				Line:    h.line,
				Message: fmt.Sprintf("hom-loss %s:%d-%d is not inside any LOH event", h.event.Chromosome, h.event.PosStart, h.event.PosEnd),
			}
		}
	}
	return lohs, nil
}

func (p *EventParser) svRef(fields []string, name string) (int, error) {
	s := p.t.field(fields, name)
	if s == Missing {
		return sv.NoSV, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.t.errorf("invalid %s: %s", name, s)
	}
	return id, nil
}

func (p *EventParser) flag(fields []string, name string) (bool, error) {
	s := p.t.field(fields, name)
	if s == Missing {
		return true, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, p.t.errorf("invalid %s: %s", name, s)
	}
	return v, nil
}

// ReadEvents reads a whole event table.
func ReadEvents(path string) ([]*sv.LohEvent, error) {
	p, err := NewEventParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	lohs, err := p.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return lohs, nil
}
