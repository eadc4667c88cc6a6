package sentence

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/hglc/internal/canon"
)

const baseLine = "SUBJ:Human:alice INTENT:approve ACT:access OBJ:dataset/d1"

func TestParseRoundTripExample(t *testing.T) {
	c, err := Compile(baseLine, ParseOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := `{"act":"access","intent":"approve","obj":{"id":"d1","kind":"dataset"},"sentence_type":"COOP_SENTENCE","subj":{"id":"alice","kind":"Human"},"v":"0.1"}`
	if string(c.Canonical) != want {
		t.Fatalf("canonical mismatch\n got: %s\nwant: %s", c.Canonical, want)
	}
	if len(c.Fingerprint) != 64 || strings.ToLower(c.Fingerprint) != c.Fingerprint {
		t.Fatalf("fingerprint %q is not 64 lowercase hex chars", c.Fingerprint)
	}
	if c.Sentence.Consent != nil || c.Sentence.Policy != nil || c.Sentence.Provenance != nil {
		t.Fatal("optional fields should be absent")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		kind  ErrorKind
		field Tag
	}{
		{"missing OBJ", "SUBJ:Human:alice INTENT:approve ACT:access", GrammarError, TagObject},
		{"missing SUBJ", "INTENT:approve ACT:access OBJ:dataset/d1", GrammarError, TagSubject},
		{"empty line", "", GrammarError, TagSubject},
		{"subject without colon", "SUBJ:Human INTENT:approve ACT:access OBJ:dataset/d1", FormatError, TagSubject},
		{"subject empty id", "SUBJ:Human: INTENT:approve ACT:access OBJ:dataset/d1", FormatError, TagSubject},
		{"subject empty kind", "SUBJ::alice INTENT:approve ACT:access OBJ:dataset/d1", FormatError, TagSubject},
		{"subject unknown kind", "SUBJ:Robot:r2 INTENT:approve ACT:access OBJ:dataset/d1", EnumerationError, TagSubject},
		{"intent maybe", "SUBJ:Human:alice INTENT:maybe ACT:access OBJ:dataset/d1", EnumerationError, TagIntent},
		{"intent empty", "SUBJ:Human:alice INTENT: ACT:access OBJ:dataset/d1", EnumerationError, TagIntent},
		{"act unknown", "SUBJ:Human:alice INTENT:approve ACT:delete OBJ:dataset/d1", EnumerationError, TagAct},
		{"object without slash", "SUBJ:Human:alice INTENT:approve ACT:access OBJ:dataset", FormatError, TagObject},
		{"object unknown kind", "SUBJ:Human:alice INTENT:approve ACT:access OBJ:table/t1", EnumerationError, TagObject},
		{"consent without at", baseLine + " CONSENT:read", FormatError, TagConsent},
		{"consent empty scope", baseLine + " CONSENT:@2026", FormatError, TagConsent},
		{"consent unknown scope", baseLine + " CONSENT:admin@2026", EnumerationError, TagConsent},
		{"digest 63 chars", baseLine + " PROOF:sha256=" + strings.Repeat("a", 63), ProvenanceFormatError, TagProof},
		{"digest non hex", baseLine + " PROOF:hash=" + strings.Repeat("g", 64), ProvenanceFormatError, TagProof},
		{"subject fails before intent", "SUBJ:Robot:r INTENT:maybe ACT:access OBJ:dataset/d1", EnumerationError, TagSubject},
		{"out of order intent swallows subject", "INTENT:approve SUBJ:Human:alice ACT:access OBJ:dataset/d1", EnumerationError, TagIntent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.line)
			if err == nil {
				t.Fatalf("expected error, got %+v", s)
			}
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if se.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", se.Kind, tt.kind, err)
			}
			if se.Field != tt.field {
				t.Errorf("field = %s, want %s (%v)", se.Field, tt.field, err)
			}
			if se.Reason == "" {
				t.Error("reason should not be empty")
			}
			if s.SentenceType != "" {
				t.Error("no partial record may be returned")
			}
		})
	}
}

func TestErrorSentinels(t *testing.T) {
	_, err := Parse("SUBJ:Human:alice INTENT:approve ACT:access")
	if !errors.Is(err, ErrGrammar) {
		t.Fatalf("expected ErrGrammar, got %v", err)
	}
	if errors.Is(err, ErrEnumeration) {
		t.Fatal("grammar error must not match ErrEnumeration")
	}

	_, err = Parse(baseLine + " PROOF:sha256=abc")
	if !errors.Is(err, ErrProvenanceFormat) {
		t.Fatalf("expected ErrProvenanceFormat, got %v", err)
	}

	_, err = Parse("SUBJ:Human INTENT:approve ACT:access OBJ:dataset/d1")
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestParseConsent(t *testing.T) {
	c, err := Compile(baseLine+" CONSENT:read@2026-01-01", ParseOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(string(c.Canonical), `"consent":{"scope":"read","until":"2026-01-01"}`) {
		t.Fatalf("consent missing from %s", c.Canonical)
	}
}

func TestParseConsentEmptyUntil(t *testing.T) {
	s, err := Parse(baseLine + " CONSENT:write@")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Consent == nil || s.Consent.Scope != ScopeWrite || s.Consent.Until != "" {
		t.Fatalf("unexpected consent %+v", s.Consent)
	}
}

func TestParseEmptyOptionalMarkersAreOmitted(t *testing.T) {
	s, err := Parse(baseLine + " CONSENT: POLICY: PROOF:")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Consent != nil || s.Policy != nil || s.Provenance != nil {
		t.Fatalf("expected no optional fields, got %+v", s)
	}
}

func TestParsePolicyTokensKeepOrderAndDuplicates(t *testing.T) {
	s, err := Parse(baseLine + " POLICY:pii, export  pii,,breach")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"pii", "export", "pii", "breach"}
	if s.Policy == nil || len(s.Policy.HaltIf) != len(want) {
		t.Fatalf("halt_if = %+v, want %v", s.Policy, want)
	}
	for i := range want {
		if s.Policy.HaltIf[i] != want[i] {
			t.Errorf("halt_if[%d] = %q, want %q", i, s.Policy.HaltIf[i], want[i])
		}
	}
}

func TestParsePolicyOnlySeparatorsKeepsEmptyList(t *testing.T) {
	c, err := Compile(baseLine+" POLICY:,,,", ParseOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if c.Sentence.Policy == nil || len(c.Sentence.Policy.HaltIf) != 0 {
		t.Fatalf("policy = %+v, want empty halt_if", c.Sentence.Policy)
	}
	want := `{"act":"access","intent":"approve","obj":{"id":"d1","kind":"dataset"},` +
		`"policy":{"halt_if":[]},"sentence_type":"COOP_SENTENCE","subj":{"id":"alice","kind":"Human"},"v":"0.1"}`
	if string(c.Canonical) != want {
		t.Fatalf("canonical =\n%s\nwant\n%s", c.Canonical, want)
	}
}

func TestParseDigestPreservedVerbatim(t *testing.T) {
	digest := strings.Repeat("AbCdEf01", 8)
	c, err := Compile(baseLine+" PROOF:SHA256="+digest, ParseOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if *c.Sentence.Provenance.SHA256 != digest {
		t.Fatalf("digest = %q, want %q", *c.Sentence.Provenance.SHA256, digest)
	}
	if !strings.Contains(string(c.Canonical), `"provenance":{"sha256":"`+digest+`"}`) {
		t.Fatalf("digest not preserved in %s", c.Canonical)
	}
}

func TestParseProvenanceAliasesAndDrops(t *testing.T) {
	digest := strings.Repeat("0", 64)
	s, err := Parse(baseLine + " PROOF: hash = " + digest + " ; Sig=ed25519:abc ; note=ignored ; junk")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := s.Provenance
	if p == nil || p.SHA256 == nil || p.SigEd25519 == nil {
		t.Fatalf("expected digest and signature, got %+v", p)
	}
	if *p.SHA256 != digest {
		t.Errorf("sha256 = %q", *p.SHA256)
	}
	if *p.SigEd25519 != "ed25519:abc" {
		t.Errorf("sig = %q", *p.SigEd25519)
	}
	rec := s.Record()["provenance"].(map[string]any)
	if len(rec) != 2 {
		t.Fatalf("unrecognized keys must be dropped, got %v", rec)
	}
}

func TestParseProvenanceWithoutRecognizedKeysIsOmitted(t *testing.T) {
	s, err := Parse(baseLine + " PROOF:note=hello;other=1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Provenance != nil {
		t.Fatalf("expected provenance omitted, got %+v", s.Provenance)
	}
}

func TestParseIdentifiersKeepSeparators(t *testing.T) {
	s, err := Parse("SUBJ:IAD:agent:7 INTENT:request ACT:execute OBJ:capability/tools/run")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Subject.ID != "agent:7" {
		t.Errorf("subject id = %q", s.Subject.ID)
	}
	if s.Object.ID != "tools/run" {
		t.Errorf("object id = %q", s.Object.ID)
	}
}

func TestStrictMarkers(t *testing.T) {
	strict := ParseOptions{Markers: MarkersStrict}

	if _, err := ParseWith(baseLine+" CONSENT:read@x POLICY:a PROOF:sig=s", strict); err != nil {
		t.Fatalf("well-formed line rejected in strict mode: %v", err)
	}

	tests := []struct {
		name  string
		line  string
		field Tag
	}{
		{"repeated marker", baseLine + " OBJ:model/m2", TagObject},
		{"embedded marker", "SUBJ:Human:POLICY:x INTENT:approve ACT:access OBJ:dataset/d1", TagPolicy},
		{"out of order", "INTENT:approve SUBJ:Human:alice ACT:access OBJ:dataset/d1", TagIntent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWith(tt.line, strict)
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if se.Kind != GrammarError || se.Field != tt.field {
				t.Fatalf("got %s/%s, want GrammarError/%s: %v", se.Kind, se.Field, tt.field, err)
			}
		})
	}
}

func TestBestEffortEmbeddedMarker(t *testing.T) {
	_, err := Parse("SUBJ:Human:POLICY:x INTENT:approve ACT:access OBJ:dataset/d1")
	var se *Error
	if !errors.As(err, &se) || se.Kind != FormatError || se.Field != TagSubject {
		t.Fatalf("expected FormatError on SUBJ, got %v", err)
	}
}

func TestFingerprintIndependentOfClauseSpacing(t *testing.T) {
	a, err := Compile(baseLine+" POLICY:a,b", ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile("  SUBJ:Human:alice   INTENT:approve\tACT:access OBJ:dataset/d1 POLICY: a  b ", ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Fatalf("fingerprints differ: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
}

func TestSentenceFingerprintMatchesCompile(t *testing.T) {
	c, err := Compile(baseLine, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		fp, err := c.Sentence.Fingerprint()
		if err != nil {
			t.Fatal(err)
		}
		if fp != c.Fingerprint {
			t.Fatalf("run %d: fingerprint %s != %s", i, fp, c.Fingerprint)
		}
	}
}

func TestCanonicalIndependentOfConstructionOrder(t *testing.T) {
	c, err := Compile(baseLine+" CONSENT:read@2026-01-01 POLICY:pii PROOF:sig=s1", ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	shuffled := []byte(`{"provenance":{"sig_ed25519":"s1"},"v":"0.1","policy":{"halt_if":["pii"]},
		"consent":{"until":"2026-01-01","scope":"read"},"subj":{"id":"alice","kind":"Human"},
		"obj":{"kind":"dataset","id":"d1"},"intent":"approve","act":"access","sentence_type":"COOP_SENTENCE"}`)
	got, err := canon.Canonicalize(shuffled)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, c.Canonical) {
		t.Fatalf("record form differs:\n%s\n%s", got, c.Canonical)
	}

	// The struct's json tags produce the same record as Record().
	viaStruct, err := canon.Marshal(c.Sentence)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(viaStruct, c.Canonical) {
		t.Fatalf("struct form differs:\n%s\n%s", viaStruct, c.Canonical)
	}

	fp, err := canon.FingerprintJSON(shuffled)
	if err != nil {
		t.Fatal(err)
	}
	if fp != c.Fingerprint {
		t.Fatalf("fingerprint %s != %s", fp, c.Fingerprint)
	}
}
