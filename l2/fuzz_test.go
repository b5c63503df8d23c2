package l2

import "testing"

// FuzzStatus exercises every Status method against arbitrary byte
// values, including ones the chip would never legitimately send, to
// confirm the response-status interpretation never panics and stays
// internally consistent (OK and Continues are mutually exclusive,
// AsError is nil exactly when OK or Continues is true).
func FuzzStatus(f *testing.F) {
	for b := 0; b < 256; b++ {
		f.Add(byte(b))
	}
	f.Fuzz(func(t *testing.T, raw byte) {
		s := Status(raw)
		_ = s.String()

		if s.OK() && s.Continues() {
			t.Fatalf("status %v reported both OK and Continues", s)
		}
		err := s.AsError()
		if (s.OK() || s.Continues()) && err != nil {
			t.Fatalf("status %v is OK/Continues but AsError returned %v", s, err)
		}
		if !s.OK() && !s.Continues() && err == nil {
			t.Fatalf("status %v is neither OK nor Continues but AsError returned nil", s)
		}
	})
}

// FuzzChunkAssembler confirms the assembler's length bookkeeping
// never drifts from the bytes actually appended, for arbitrary
// sequences of chunk additions.
func FuzzChunkAssembler(f *testing.F) {
	f.Add([]byte{1, 2, 3})
	f.Fuzz(func(t *testing.T, data []byte) {
		asm := NewChunkAssembler(0)
		for i := 0; i < len(data); i += 7 {
			end := i + 7
			if end > len(data) {
				end = len(data)
			}
			asm.Add(data[i:end])
		}
		if asm.Len() != len(data) {
			t.Fatalf("assembler length %d != input length %d", asm.Len(), len(data))
		}
		if string(asm.Bytes()) != string(data) {
			t.Fatalf("assembled bytes differ from input")
		}
	})
}
