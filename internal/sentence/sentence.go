// Package sentence compiles single-line cooperation sentences into
// validated records.
//
// A line names a subject, the intent it holds, the act it is about and the
// object it targets, optionally followed by consent, policy and provenance
// clauses:
//
//	SUBJ:Human:alice INTENT:approve ACT:access OBJ:dataset/d1 CONSENT:read@2026-01-01
//
// Parse returns a Sentence or a *Error describing the first rule the line
// broke. Compile additionally renders the canonical JSON form and its
// SHA-256 fingerprint.
package sentence

// Subject is the actor making the statement.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// Object is the target of the act.
type Object struct {
	Kind ObjectKind `json:"kind"`
	ID   string     `json:"id"`
}

// Consent bounds the act to a scope until a point given as free text.
type Consent struct {
	Scope Scope  `json:"scope"`
	Until string `json:"until"`
}

// Policy lists halt conditions in the order written. Duplicates are kept.
type Policy struct {
	HaltIf []string `json:"halt_if"`
}

// Provenance carries an optional content digest and signature reference.
// A nil field was not supplied.
type Provenance struct {
	SHA256     *string `json:"sha256,omitempty"`
	SigEd25519 *string `json:"sig_ed25519,omitempty"`
}

// Sentence is one compiled cooperation sentence. It is a value: nothing
// retains or mutates it after Parse returns.
type Sentence struct {
	SentenceType string      `json:"sentence_type"`
	Version      string      `json:"v"`
	Subject      Subject     `json:"subj"`
	Intent       Intent      `json:"intent"`
	Act          Act         `json:"act"`
	Object       Object      `json:"obj"`
	Consent      *Consent    `json:"consent,omitempty"`
	Policy       *Policy     `json:"policy,omitempty"`
	Provenance   *Provenance `json:"provenance,omitempty"`
}

// Record returns the sentence as a generic JSON-shaped map, with optional
// sub-records only when present.
func (s Sentence) Record() map[string]any {
	rec := map[string]any{
		"sentence_type": s.SentenceType,
		"v":             s.Version,
		"subj":          map[string]any{"kind": string(s.Subject.Kind), "id": s.Subject.ID},
		"intent":        string(s.Intent),
		"act":           string(s.Act),
		"obj":           map[string]any{"kind": string(s.Object.Kind), "id": s.Object.ID},
	}
	if s.Consent != nil {
		rec["consent"] = map[string]any{"scope": string(s.Consent.Scope), "until": s.Consent.Until}
	}
	if s.Policy != nil {
		halt := make([]any, len(s.Policy.HaltIf))
		for i, tok := range s.Policy.HaltIf {
			halt[i] = tok
		}
		rec["policy"] = map[string]any{"halt_if": halt}
	}
	if s.Provenance != nil {
		prov := map[string]any{}
		if s.Provenance.SHA256 != nil {
			prov["sha256"] = *s.Provenance.SHA256
		}
		if s.Provenance.SigEd25519 != nil {
			prov["sig_ed25519"] = *s.Provenance.SigEd25519
		}
		rec["provenance"] = prov
	}
	return rec
}
