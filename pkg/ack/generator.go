// Package ack generates X12 997 functional acknowledgments from the
// envelope segments captured while parsing an 810.
package ack

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation sentinels, matchable with errors.Is.
var (
	ErrHeaderMissing = errors.New("header segment missing or mistagged")
	ErrElementCount  = errors.New("header segment has too few elements")
)

// HeaderError reports which envelope header failed validation and why.
type HeaderError struct {
	Header string // "ISA", "ST" or "GS"
	Detail string
	Err    error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid %s segment: %s", e.Header, e.Detail)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// Config is the delimiter and identification profile for generated
// acknowledgments. LineEnding is only used when formatting for display;
// the wire output never contains newlines.
type Config struct {
	SegmentTerminator   string
	ElementSeparator    string
	SubElementSeparator string
	LineEnding          string
	ControlVersion      string
	FunctionalIDCode    string
	AckCode             string
}

// DefaultConfig returns the 004010 profile used for outbound 997s.
func DefaultConfig() Config {
	return Config{
		SegmentTerminator:   "~",
		ElementSeparator:    "*",
		SubElementSeparator: ">",
		LineEnding:          "\n",
		ControlVersion:      "00401",
		FunctionalIDCode:    "FA",
		AckCode:             "A",
	}
}

// ackControlNumber is the fixed control number assigned to the generated
// transaction set and echoed in its SE trailer.
const ackControlNumber = "1001"

// Generator builds 997 documents for one acknowledgment profile.
type Generator struct {
	cfg Config
	now func() time.Time
}

// NewGenerator creates a Generator with the given configuration.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg, now: time.Now}
}

// Generate builds the acknowledgment for one captured (ISA, ST, GS) header
// triple. Apart from the clock it is a pure function of its inputs: sender
// and receiver are swapped, control numbers are echoed back and the fixed
// AK1/AK2/AK5/AK9 body acknowledges acceptance.
func (g *Generator) Generate(isa, st, gs string) (string, error) {
	if err := g.validate(isa, st, gs); err != nil {
		return "", fmt.Errorf("invalid input segments: %w", err)
	}

	sep := g.cfg.ElementSeparator
	isaElements := strings.Split(strings.TrimSuffix(isa, g.cfg.SegmentTerminator), sep)
	stElements := strings.Split(strings.TrimSuffix(st, g.cfg.SegmentTerminator), sep)
	gsElements := strings.Split(strings.TrimSuffix(gs, g.cfg.SegmentTerminator), sep)

	// The interchange control number is echoed back zero-padded to the
	// fixed nine characters the ISA layout requires.
	isaControl := zeroPad(isaElements[13], 9)
	gsControl := gsElements[6]
	stControl := stElements[2]

	now := g.now()
	date := now.Format("060102")
	clock := now.Format("1504")

	senderQualifier := isaElements[5]
	senderID := isaElements[6]
	receiverQualifier := isaElements[7]
	receiverID := isaElements[8]

	segments := []string{
		strings.Join([]string{
			"ISA", isaElements[1], isaElements[2], isaElements[3], isaElements[4],
			receiverQualifier, receiverID, senderQualifier, senderID,
			date, clock, g.cfg.ControlVersion, isaControl, "0", "P", g.cfg.SubElementSeparator,
		}, sep),
		strings.Join([]string{
			"GS", g.cfg.FunctionalIDCode, receiverID, senderID, date, clock, gsControl, "X", g.cfg.ControlVersion,
		}, sep),
		strings.Join([]string{"ST", "997", ackControlNumber}, sep),
		strings.Join([]string{"AK1", gsElements[1], gsControl}, sep),
		strings.Join([]string{"AK2", "810", stControl}, sep),
		strings.Join([]string{"AK5", g.cfg.AckCode}, sep),
		strings.Join([]string{"AK9", g.cfg.AckCode, "1", "1", "1"}, sep),
		strings.Join([]string{"SE", "7", ackControlNumber}, sep),
		strings.Join([]string{"GE", "1", gsControl}, sep),
		strings.Join([]string{"IEA", "1", isaControl}, sep),
	}

	return strings.Join(segments, g.cfg.SegmentTerminator) + g.cfg.SegmentTerminator, nil
}

// Display re-renders a generated document with one segment per line.
func (g *Generator) Display(doc string) string {
	term := g.cfg.SegmentTerminator
	var lines []string
	for _, seg := range strings.Split(strings.TrimSuffix(doc, term), term) {
		if seg == "" {
			continue
		}
		lines = append(lines, seg+term)
	}
	return strings.Join(lines, g.cfg.LineEnding)
}

// validate checks the captured headers before any generation work. Tags
// are checked first, then minimum element counts per the 004010 envelope
// layout. The first failure wins.
func (g *Generator) validate(isa, st, gs string) error {
	if isa == "" || !strings.HasPrefix(isa, "ISA") {
		return &HeaderError{Header: "ISA", Detail: "missing or invalid ISA segment", Err: ErrHeaderMissing}
	}
	if st == "" || !strings.HasPrefix(st, "ST") {
		return &HeaderError{Header: "ST", Detail: "missing or invalid ST segment", Err: ErrHeaderMissing}
	}
	if gs == "" || !strings.HasPrefix(gs, "GS") {
		return &HeaderError{Header: "GS", Detail: "missing or invalid GS segment", Err: ErrHeaderMissing}
	}

	sep := g.cfg.ElementSeparator
	if n := len(strings.Split(isa, sep)); n < 16 {
		return &HeaderError{
			Header: "ISA",
			Detail: fmt.Sprintf("ISA segment has %d elements, expected 16", n),
			Err:    ErrElementCount,
		}
	}
	if n := len(strings.Split(gs, sep)); n < 8 {
		return &HeaderError{
			Header: "GS",
			Detail: fmt.Sprintf("GS segment has %d elements, expected 8", n),
			Err:    ErrElementCount,
		}
	}
	if n := len(strings.Split(st, sep)); n < 3 {
		return &HeaderError{
			Header: "ST",
			Detail: fmt.Sprintf("ST segment has %d elements, expected 3", n),
			Err:    ErrElementCount,
		}
	}
	return nil
}

// zeroPad left-pads s with zeros to width characters.
func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
