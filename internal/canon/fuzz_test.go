package canon

import (
	"bytes"
	"testing"
)

func FuzzCanonicalize(f *testing.F) {
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"b":1,"a":[true,null,"x"]}`))
	f.Add([]byte(`{"n":-0.0,"f":2.50,"e":1e300,"s":"é😀"}`))
	f.Add([]byte(`[1, 2.0, 1e-7, 123456789012345678901234567890]`))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		out, err := Canonicalize(data)
		if err != nil {
			return
		}
		again, err := Canonicalize(out)
		if err != nil {
			t.Fatalf("canonical output rejected: %v\n%s", err, out)
		}
		if !bytes.Equal(out, again) {
			t.Fatalf("not idempotent:\n%s\n%s", out, again)
		}
		for _, b := range out {
			if b >= 0x80 {
				t.Fatalf("non-ASCII byte in canonical output: %s", out)
			}
		}
	})
}
