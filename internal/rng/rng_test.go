package rng

import "testing"

func TestSeededRNGReproducible(t *testing.T) {
	a := NewSeededRNG(9)
	b := NewSeededRNG(9)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v != %v", i, x, y)
		}
	}
}

func TestUniformStatApprox(t *testing.T) {
	const n = 100000
	src := NewSeededRNG(42)
	var sum float64
	for i := 0; i < n; i++ {
		v := Uniform(src, -0.02, 0.02)
		if v < -0.02 || v >= 0.02 {
			t.Fatalf("value %v out of range", v)
		}
		sum += v
	}
	if mean := sum / n; mean > 0.0005 || mean < -0.0005 {
		t.Fatalf("mean=%f not close to 0", mean)
	}
}

func TestDefaultRNGRange(t *testing.T) {
	src := DefaultRNG()
	for i := 0; i < 1000; i++ {
		if v := src.Float64(); v < 0 || v >= 1 {
			t.Fatalf("value %v out of [0,1)", v)
		}
	}
}
