package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	if Sum([]byte("abc")) != Sum([]byte("abc")) {
		t.Fatal("Sum not deterministic")
	}
	if len(Sum(nil)) != 64 {
		t.Errorf("len = %d, want 64", len(Sum(nil)))
	}
}

func TestKey_Separates(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key should separate parts")
	}
}
