package crypto

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func TestHashlockRoundTrip(t *testing.T) {
	var secret [32]byte
	copy(secret[:], []byte("correct horse battery staple!!!"))

	lock := Hashlock(secret)
	if !VerifyHashlock(secret, lock) {
		t.Fatalf("expected secret to open its own hashlock")
	}

	var wrong [32]byte
	copy(wrong[:], []byte("wrong secret padded to 32 bytes"))
	if VerifyHashlock(wrong, lock) {
		t.Fatalf("expected a different secret to not open the hashlock")
	}
}

func TestSealOpenLayer(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	pub := priv.PubKey()

	plaintext := []byte(`{"nextHop":"H","forwardAmount":100000}`)
	sealed, err := SealLayer(pub, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	opened, err := OpenLayer(priv, sealed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round-trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestHankoThreshold(t *testing.T) {
	p1, _ := btcec.NewPrivateKey()
	p2, _ := btcec.NewPrivateKey()
	p3, _ := btcec.NewPrivateKey()

	vs := ValidatorSet{
		Keys: map[ValidatorID]*btcec.PublicKey{
			"v1": p1.PubKey(),
			"v2": p2.PubKey(),
			"v3": p3.PubKey(),
		},
		Threshold: 2,
	}

	hash := H([]byte("proofBody"))

	hanko, err := CollectHanko(hash, LocalSigner{ID: "v1", Key: p1})
	if err != nil {
		t.Fatal(err)
	}
	if vs.Verify(hash, hanko) {
		t.Fatalf("single signature below threshold must not verify")
	}

	hanko2, err := CollectHanko(hash, LocalSigner{ID: "v1", Key: p1}, LocalSigner{ID: "v2", Key: p2})
	if err != nil {
		t.Fatal(err)
	}
	if !vs.Verify(hash, hanko2) {
		t.Fatalf("two of three signatures should meet threshold")
	}
}
