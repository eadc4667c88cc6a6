package sentence

import (
	"fmt"

	"github.com/ppiankov/hglc/internal/canon"
)

// MarkerPolicy decides how lines with ambiguous marker placement are treated.
type MarkerPolicy int

const (
	// MarkersBestEffort segments the line exactly as Extract does.
	MarkersBestEffort MarkerPolicy = iota
	// MarkersStrict rejects a line when a marker repeats, is embedded in
	// another token, or appears out of grammar order.
	MarkersStrict
)

// ParseOptions tunes Parse. The zero value is the default behaviour.
type ParseOptions struct {
	Markers MarkerPolicy
}

// Parse compiles one line into a Sentence using default options.
func Parse(line string) (Sentence, error) {
	return ParseWith(line, ParseOptions{})
}

// ParseWith compiles one line into a Sentence. On failure it returns the
// zero Sentence and a *Error for the first violated rule.
func ParseWith(line string, opts ParseOptions) (Sentence, error) {
	if opts.Markers == MarkersStrict {
		if err := checkMarkers(Normalize(line)); err != nil {
			return Sentence{}, err
		}
	}
	p, err := validate(Extract(line))
	if err != nil {
		return Sentence{}, err
	}
	return build(p), nil
}

func build(p parts) Sentence {
	return Sentence{
		SentenceType: SentenceType,
		Version:      Version,
		Subject:      p.subject,
		Intent:       p.intent,
		Act:          p.act,
		Object:       p.object,
		Consent:      p.consent,
		Policy:       p.policy,
		Provenance:   p.provenance,
	}
}

// Canonical returns the canonical JSON encoding of the sentence.
func (s Sentence) Canonical() ([]byte, error) {
	b, err := canon.Marshal(s.Record())
	if err != nil {
		return nil, fmt.Errorf("sentence: canonicalize: %w", err)
	}
	return b, nil
}

// Fingerprint returns the SHA-256 hex digest of the canonical encoding.
func (s Sentence) Fingerprint() (string, error) {
	b, err := s.Canonical()
	if err != nil {
		return "", err
	}
	return canon.Fingerprint(b), nil
}

// Compiled bundles a parsed sentence with its canonical bytes and fingerprint.
type Compiled struct {
	Sentence    Sentence
	Canonical   []byte
	Fingerprint string
}

// Compile runs the full pipeline on one line.
func Compile(line string, opts ParseOptions) (Compiled, error) {
	s, err := ParseWith(line, opts)
	if err != nil {
		return Compiled{}, err
	}
	b, err := s.Canonical()
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{Sentence: s, Canonical: b, Fingerprint: canon.Fingerprint(b)}, nil
}
