package sentence

import (
	"strings"
	"unicode"
)

// parts holds the decomposed fields of a line that passed validation.
type parts struct {
	subject    Subject
	intent     Intent
	act        Act
	object     Object
	consent    *Consent
	policy     *Policy
	provenance *Provenance
}

// validate applies the grammar rules in order and stops at the first
// violation.
func validate(f Fields) (parts, error) {
	var p parts

	for _, tag := range required {
		if _, ok := f.Lookup(tag); !ok {
			return p, newError(GrammarError, tag, "missing required field")
		}
	}

	kind, id, ok := splitPair(f[TagSubject], ":")
	if !ok {
		return p, newError(FormatError, TagSubject, "must look like Kind:identifier, got %q", f[TagSubject])
	}
	p.subject = Subject{Kind: SubjectKind(kind), ID: id}
	if !p.subject.Kind.Valid() {
		return p, newError(EnumerationError, TagSubject, "invalid subject kind %q (want Human, IAD or CLS)", kind)
	}

	p.intent = Intent(f[TagIntent])
	if !p.intent.Valid() {
		return p, newError(EnumerationError, TagIntent, "invalid value %q (want approve, deny or request)", f[TagIntent])
	}

	p.act = Act(f[TagAct])
	if !p.act.Valid() {
		return p, newError(EnumerationError, TagAct, "invalid value %q (want access, upsert or execute)", f[TagAct])
	}

	kind, id, ok = splitPair(f[TagObject], "/")
	if !ok {
		return p, newError(FormatError, TagObject, "must look like kind/id, got %q", f[TagObject])
	}
	p.object = Object{Kind: ObjectKind(kind), ID: id}
	if !p.object.Kind.Valid() {
		return p, newError(EnumerationError, TagObject, "invalid object kind %q (want dataset, model, ledger or capability)", kind)
	}

	if raw := f[TagConsent]; raw != "" {
		scope, until, found := strings.Cut(raw, "@")
		if !found || scope == "" {
			return p, newError(FormatError, TagConsent, "must look like scope@until, got %q", raw)
		}
		p.consent = &Consent{Scope: Scope(scope), Until: strings.TrimSpace(until)}
		if !p.consent.Scope.Valid() {
			return p, newError(EnumerationError, TagConsent, "invalid scope %q (want read, write or execute)", scope)
		}
	}

	if raw := f[TagPolicy]; raw != "" {
		toks := strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if toks == nil {
			toks = []string{}
		}
		p.policy = &Policy{HaltIf: toks}
	}

	if raw := f[TagProof]; raw != "" {
		prov, err := parseProvenance(raw)
		if err != nil {
			return p, err
		}
		p.provenance = prov
	}

	return p, nil
}

// splitPair cuts s at the first sep and requires both halves to be non-empty.
func splitPair(s, sep string) (string, string, bool) {
	a, b, found := strings.Cut(s, sep)
	if !found || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

// parseProvenance reads key=value clauses separated by ';'. Unrecognized
// keys and clauses without '=' are dropped on purpose. Returns nil when no
// recognized clause is present.
func parseProvenance(raw string) (*Provenance, error) {
	var prov Provenance
	found := false
	for _, clause := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(clause, "=")
		if !ok {
			continue
		}
		key, known := provenanceKey(strings.TrimSpace(k))
		if !known {
			continue
		}
		v = strings.TrimSpace(v)
		switch key {
		case "sha256":
			if !isDigest(v) {
				return nil, newError(ProvenanceFormatError, TagProof, "sha256 must be 64 hex chars, got %d chars", len(v))
			}
			prov.SHA256 = &v
		case "sig_ed25519":
			prov.SigEd25519 = &v
		}
		found = true
	}
	if !found {
		return nil, nil
	}
	return &prov, nil
}

// isDigest reports whether s is exactly 64 hex characters of either case.
func isDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
