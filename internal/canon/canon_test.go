package canon

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestMarshalSortsKeysAtEveryLevel(t *testing.T) {
	v := map[string]any{
		"z": 1,
		"a": map[string]any{"y": true, "b": nil},
		"m": []any{map[string]any{"k2": "v", "k1": "w"}},
	}
	got, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"a":{"b":null,"y":true},"m":[{"k1":"w","k2":"v"}],"z":1}`
	if string(got) != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestCanonicalizeIsOrderIndependent(t *testing.T) {
	a := []byte(`{"subj":{"kind":"Human","id":"alice"},"v":"0.1","act":"access"}`)
	b := []byte(`{ "act" : "access",
		"v": "0.1",
		"subj": {"id": "alice", "kind": "Human"} }`)

	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize a: %v", err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize b: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical forms differ:\n%s\n%s", ca, cb)
	}

	fa, _ := FingerprintJSON(a)
	fb, _ := FingerprintJSON(b)
	if fa != fb {
		t.Fatalf("fingerprints differ: %s vs %s", fa, fb)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	in := []byte(`{"b":[1,2.50,"xé"],"a":{"n":-0,"f":1e21,"s":"tab\there"}}`)
	once, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	twice, err := Canonicalize(once)
	if err != nil {
		t.Fatalf("Canonicalize twice: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("not idempotent:\n%s\n%s", once, twice)
	}
	want := `{"a":{"f":1e+21,"n":0,"s":"tab\there"},"b":[1,2.5,"x\u00e9"]}`
	if string(once) != want {
		t.Fatalf("got  %s\nwant %s", once, want)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	v := map[string]any{}
	for _, k := range strings.Fields("q w e r t y u i o p a s d f g h j k l") {
		v[k] = k
	}
	first, err := Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		again, _ := Marshal(v)
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestStringEscaping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`quote"back\slash`, `"quote\"back\\slash"`},
		{"<&>", `"<&>"`},
		{"\n\r\t\b\f", `"\n\r\t\b\f"`},
		{"\x01\x1f", `"\u0001\u001f"`},
		{"\x7f", `"\u007f"`},
		{"café", `"caf\u00e9"`},
		{"😀", `"\ud83d\ude00"`},
		{"\xff", `"\ufffd"`},
	}
	for _, tt := range tests {
		got, err := Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal(%q): %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNumberEncoding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"-0", "0"},
		{"42", "42"},
		{"-7", "-7"},
		{"123456789012345678901234567890", "123456789012345678901234567890"},
		{"1.0", "1.0"},
		{"-0.0", "-0.0"},
		{"0e5", "0.0"},
		{"2.50", "2.5"},
		{"123.456", "123.456"},
		{"1e5", "100000.0"},
		{"0.0001", "0.0001"},
		{"0.00001", "1e-05"},
		{"2.5E-7", "2.5e-07"},
		{"1e15", "1000000000000000.0"},
		{"1e16", "1e+16"},
		{"1.5e300", "1.5e+300"},
		{"-1.25e-10", "-1.25e-10"},
	}
	for _, tt := range tests {
		got, err := Marshal(json.Number(tt.in))
		if err != nil {
			t.Fatalf("Marshal(%s): %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestGoNumericTypes(t *testing.T) {
	got, err := Marshal([]any{int(3), int64(-4), uint64(18446744073709551615), 0.5, float32(0.25)})
	if err != nil {
		t.Fatal(err)
	}
	want := `[3,-4,18446744073709551615,0.5,0.25]`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMarshalStructUsesJSONTags(t *testing.T) {
	type inner struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
	}
	type rec struct {
		Z     string `json:"z"`
		Inner inner  `json:"inner"`
		Skip  string `json:"skip,omitempty"`
	}
	got, err := Marshal(rec{Z: "last", Inner: inner{Kind: "k", ID: "i"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"inner":{"id":"i","kind":"k"},"z":"last"}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeRejectsBadInput(t *testing.T) {
	for _, in := range []string{``, `{"a":1} {"b":2}`, `{"a":`, `[1,]`} {
		if _, err := Canonicalize([]byte(in)); err == nil {
			t.Errorf("Canonicalize(%q) should fail", in)
		}
	}
}

func TestGoNegativeZero(t *testing.T) {
	got, err := Marshal([]any{math.Copysign(0, -1), 0.0})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `[-0.0,0.0]` {
		t.Fatalf("got %s", got)
	}
}

func TestLoneSurrogateIsReplaced(t *testing.T) {
	// encoding/json decodes an unpaired surrogate escape as U+FFFD.
	got, err := Canonicalize([]byte(`["\ud800","\ufffd"]`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `["\ufffd","\ufffd"]` {
		t.Fatalf("got %s", got)
	}
}

func TestCanonicalizeDuplicateKeysKeepLast(t *testing.T) {
	got, err := Canonicalize([]byte(`{"a":1,"a":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("got %s", got)
	}
}

func TestFingerprint(t *testing.T) {
	// sha256("") is a well-known constant.
	if got := Fingerprint(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("Fingerprint(empty) = %s", got)
	}
	fp, err := FingerprintValue(map[string]any{"b": 1, "a": 2})
	if err != nil {
		t.Fatal(err)
	}
	if fp != Fingerprint([]byte(`{"a":2,"b":1}`)) {
		t.Fatalf("FingerprintValue did not hash the canonical bytes")
	}
}
