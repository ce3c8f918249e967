package mode

import "testing"

func TestChannelStartsOrdering(t *testing.T) {
	starts := Scottie1.ChannelStarts()
	if !(starts[0] < starts[1] && starts[1] < starts[2]) {
		t.Fatalf("channel starts not strictly increasing: %v", starts)
	}
	if starts[0] != Scottie1.SeptrTime {
		t.Fatalf("green segment should start after one separator, got %v", starts[0])
	}
}

func TestColorLen(t *testing.T) {
	got := Scottie1.ColorLen()
	want := Scottie1.PixelTime * float64(Scottie1.ImgWidth)
	if got != want {
		t.Fatalf("ColorLen() = %v, want %v", got, want)
	}
}

func TestExpectedLineSamplesPositive(t *testing.T) {
	n := Scottie1.ExpectedLineSamples(44100.0)
	if n <= 0 {
		t.Fatalf("expected positive line sample count, got %d", n)
	}
	// Sanity: should be close to LineTime*rate within a few percent.
	nominal := Scottie1.LineTime * 44100.0
	diff := float64(n) - nominal
	if diff < 0 {
		diff = -diff
	}
	if diff/nominal > 0.02 {
		t.Fatalf("ExpectedLineSamples = %d too far from nominal %v", n, nominal)
	}
}
