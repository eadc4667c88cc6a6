package sentence

import "strings"

// Tag names one field of the sentence grammar.
type Tag string

const (
	TagSubject Tag = "SUBJ"
	TagIntent  Tag = "INTENT"
	TagAct     Tag = "ACT"
	TagObject  Tag = "OBJ"
	TagConsent Tag = "CONSENT"
	TagPolicy  Tag = "POLICY"
	TagProof   Tag = "PROOF"
)

// Marker returns the literal text that introduces the tag in a line.
func (t Tag) Marker() string {
	return string(t) + ":"
}

// grammar is the fixed tag order. A tag's value ends where the first later
// tag in this order begins.
var grammar = [...]Tag{
	TagSubject,
	TagIntent,
	TagAct,
	TagObject,
	TagConsent,
	TagPolicy,
	TagProof,
}

// required lists the tags every sentence must carry, in validation order.
var required = [...]Tag{TagSubject, TagIntent, TagAct, TagObject}

// Tags returns the grammar tags in their fixed order.
func Tags() []Tag {
	out := make([]Tag, len(grammar))
	copy(out, grammar[:])
	return out
}

// Fixed values stamped on every sentence.
const (
	SentenceType = "COOP_SENTENCE"
	Version      = "0.1"
)

// SubjectKind classifies the actor making the statement.
type SubjectKind string

const (
	KindHuman SubjectKind = "Human"
	KindIAD   SubjectKind = "IAD" // autonomous agent
	KindCLS   SubjectKind = "CLS" // classifier or service
)

// Valid reports whether k is a recognized actor kind.
func (k SubjectKind) Valid() bool {
	switch k {
	case KindHuman, KindIAD, KindCLS:
		return true
	}
	return false
}

// Intent is the stance the subject takes.
type Intent string

const (
	IntentApprove Intent = "approve"
	IntentDeny    Intent = "deny"
	IntentRequest Intent = "request"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentApprove, IntentDeny, IntentRequest:
		return true
	}
	return false
}

// Act is the operation the intent is about.
type Act string

const (
	ActAccess  Act = "access"
	ActUpsert  Act = "upsert"
	ActExecute Act = "execute"
)

func (a Act) Valid() bool {
	switch a {
	case ActAccess, ActUpsert, ActExecute:
		return true
	}
	return false
}

// ObjectKind classifies the target of the act.
type ObjectKind string

const (
	ObjectDataset    ObjectKind = "dataset"
	ObjectModel      ObjectKind = "model"
	ObjectLedger     ObjectKind = "ledger"
	ObjectCapability ObjectKind = "capability"
)

func (k ObjectKind) Valid() bool {
	switch k {
	case ObjectDataset, ObjectModel, ObjectLedger, ObjectCapability:
		return true
	}
	return false
}

// Scope is the access level a consent grants.
type Scope string

const (
	ScopeRead    Scope = "read"
	ScopeWrite   Scope = "write"
	ScopeExecute Scope = "execute"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeRead, ScopeWrite, ScopeExecute:
		return true
	}
	return false
}

// provenanceKey maps accepted PROOF clause keys (lowercased) to their output key.
func provenanceKey(k string) (string, bool) {
	switch strings.ToLower(k) {
	case "sha256", "hash":
		return "sha256", true
	case "sig", "sig_ed25519":
		return "sig_ed25519", true
	}
	return "", false
}
