package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/grovetools/claudelogs/schema"
	"github.com/sirupsen/logrus"
)

// stage is one tier of the parse pipeline. It receives the raw line and its
// encoding/json decoding and either produces a Message or explains why not.
type stage struct {
	name string
	run  func(raw []byte, doc any) (*Message, error)
	hits *atomic.Int64
}

// ParserStats counts which tier produced each parsed line.
type ParserStats struct {
	Strict   int64 `json:"strict"`
	Lenient  int64 `json:"lenient"`
	Raw      int64 `json:"raw"`
	Salvaged int64 `json:"salvaged"`
	Dropped  int64 `json:"dropped"`
}

// Parser turns transcript lines into Messages through strict schema
// validation, lenient validation plus normalization, and raw field
// extraction, in that order. Lines that are not JSON go through regex
// salvage instead. A Parser is safe for concurrent use.
type Parser struct {
	strict  *schema.Validator
	lenient *schema.Validator
	log     *logrus.Entry
	now     func() time.Time

	stages []stage

	strictHits, lenientHits, rawHits atomic.Int64
	salvaged, dropped                atomic.Int64
}

// NewParser compiles the embedded message schemas.
func NewParser(log *logrus.Entry) (*Parser, error) {
	strict, err := schema.NewValidator(schema.MessageStrict)
	if err != nil {
		return nil, fmt.Errorf("loading strict message schema: %w", err)
	}
	lenient, err := schema.NewValidator(schema.MessageLenient)
	if err != nil {
		return nil, fmt.Errorf("loading lenient message schema: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	p := &Parser{
		strict:  strict,
		lenient: lenient,
		log:     log,
		now:     time.Now,
	}
	p.stages = []stage{
		{name: "strict", run: p.parseStrict, hits: &p.strictHits},
		{name: "lenient", run: p.parseLenient, hits: &p.lenientHits},
		{name: "raw", run: p.parseRaw, hits: &p.rawHits},
	}
	return p, nil
}

// ParseLine parses one transcript line. It returns nil when nothing usable
// can be recovered and never panics.
func (p *Parser) ParseLine(line string) (msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Error("Parser panicked, dropping line")
			p.dropped.Add(1)
			msg = nil
		}
	}()

	trimmed := strings.TrimSpace(line)
	raw := []byte(trimmed)

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		if msg = salvageMalformed(trimmed, p.now()); msg != nil {
			p.salvaged.Add(1)
			return msg
		}
		p.dropped.Add(1)
		return nil
	}

	for _, st := range p.stages {
		m, err := st.run(raw, doc)
		if err == nil && m != nil {
			st.hits.Add(1)
			return m
		}
		if p.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			p.log.WithError(err).WithField("stage", st.name).Trace("Parse stage rejected line")
		}
	}

	p.dropped.Add(1)
	return nil
}

// Stats returns a snapshot of the per-tier counters.
func (p *Parser) Stats() ParserStats {
	return ParserStats{
		Strict:   p.strictHits.Load(),
		Lenient:  p.lenientHits.Load(),
		Raw:      p.rawHits.Load(),
		Salvaged: p.salvaged.Load(),
		Dropped:  p.dropped.Load(),
	}
}

func (p *Parser) parseStrict(raw []byte, doc any) (*Message, error) {
	if err := p.strict.ValidateValue(doc); err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (p *Parser) parseLenient(_ []byte, doc any) (*Message, error) {
	if err := p.lenient.ValidateValue(doc); err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not an object")
	}
	return normalizeLenient(obj)
}

func (p *Parser) parseRaw(raw []byte, _ any) (*Message, error) {
	msg := extractRawSessionInfo(raw, p.now())
	if msg == nil {
		return nil, fmt.Errorf("not an object")
	}
	return msg, nil
}
