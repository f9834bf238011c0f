package ledger

import "testing"

func TestDeltaInRange(t *testing.T) {
	d := NewDelta(1)
	d.LeftCreditLimit = NewAmount(1000)
	d.RightCreditLimit = NewAmount(500)
	d.Collateral = NewAmount(200)

	if !d.InRange() {
		t.Fatalf("zero delta must be in range")
	}

	d.Offdelta = NewAmount(1200) // leftCreditLimit + collateral
	if !d.InRange() {
		t.Fatalf("delta at upper bound must be in range")
	}

	d.Offdelta = NewAmount(1201)
	if d.InRange() {
		t.Fatalf("delta past upper bound must be out of range")
	}

	d.Offdelta = NewAmount(-500)
	if !d.InRange() {
		t.Fatalf("delta at lower bound must be in range")
	}

	d.Offdelta = NewAmount(-501)
	if d.InRange() {
		t.Fatalf("delta past lower bound must be out of range")
	}
}

func TestTotalCapacity(t *testing.T) {
	d := NewDelta(1)
	d.LeftCreditLimit = NewAmount(300)
	d.RightCreditLimit = NewAmount(400)
	d.Collateral = NewAmount(100)

	if d.TotalCapacity().Cmp(NewAmount(800)) != 0 {
		t.Fatalf("expected capacity 800, got %s", d.TotalCapacity())
	}
}

func TestConservationHolds(t *testing.T) {
	if !ConservationHolds(NewAmount(200000), NewAmount(0), NewAmount(-200000)) {
		t.Fatalf("expected conservation to hold")
	}
	if ConservationHolds(NewAmount(200000), NewAmount(0), NewAmount(-199999)) {
		t.Fatalf("expected conservation to fail")
	}
}

func TestWithinMax(t *testing.T) {
	max := NewAmount(1_000_000)
	if !WithinMax(NewAmount(-1_000_000), max) {
		t.Fatalf("boundary value should be within max")
	}
	if WithinMax(NewAmount(1_000_001), max) {
		t.Fatalf("value past max should fail")
	}
}

func TestCapacitySides(t *testing.T) {
	d := NewDelta(1)
	d.LeftCreditLimit = NewAmount(1000)
	d.RightCreditLimit = NewAmount(1000)
	d.Collateral = NewAmount(0)

	if d.LeftCapacity().Cmp(NewAmount(1000)) != 0 {
		t.Fatalf("left capacity should start at rightCreditLimit")
	}
	if d.RightCapacity().Cmp(NewAmount(1000)) != 0 {
		t.Fatalf("right capacity should start at leftCreditLimit")
	}

	d = d.Move(NewAmount(400))
	if d.LeftCapacity().Cmp(NewAmount(1400)) != 0 {
		t.Fatalf("left capacity should grow after a rightward move")
	}
	if d.RightCapacity().Cmp(NewAmount(600)) != 0 {
		t.Fatalf("right capacity should shrink after a rightward move")
	}
}
