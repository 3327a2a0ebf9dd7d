package checksum

import "testing"

func TestDigestKnownVector(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(nil); got != empty {
		t.Errorf("Digest(nil) = %s, want %s", got, empty)
	}

	a := Digest([]byte("abc"))
	b := Digest([]byte("abc"))
	if a != b {
		t.Error("Digest is not deterministic")
	}
	if a == Digest([]byte("abd")) {
		t.Error("Distinct inputs produced the same digest")
	}
	if len(a) != 64 {
		t.Errorf("Digest length = %d, want 64 hex chars", len(a))
	}
}

func TestVerify(t *testing.T) {
	data := []byte(`{"semanticSegments":[]}`)
	sum := Digest(data)

	if _, err := Verify(data, sum); err != nil {
		t.Errorf("Verify with matching digest failed: %v", err)
	}

	got, err := Verify([]byte(`{"semanticSegments":[1]}`), sum)
	if err == nil {
		t.Fatal("Verify with mismatched digest succeeded")
	}
	if got == sum {
		t.Error("Recomputed digest unexpectedly equals stored checksum")
	}
}
