package brokenio_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/andrew-torda/supermat/brokenio"
)

var longstring = "0123456789012345678901234567890123456789"

// TestClean checks that with no failures set, we are just a reader.
func TestClean(t *testing.T) {
	rdr := brokenio.NewReader(io.NopCloser(strings.NewReader(longstring)))
	got, err := io.ReadAll(rdr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != longstring || rdr.NBytes() != len(longstring) {
		t.Fatal("got", string(got))
	}
}

// TestFrac wipes out different fractions of the input buffer.
func TestFrac(t *testing.T) {
	for _, frac := range []float32{0.25, 0.5, 1} {
		rdr := brokenio.NewReader(io.NopCloser(strings.NewReader(longstring)))
		rdr.SetProbFail(1)
		rdr.SetFracFail(frac)
		buf := make([]byte, len(longstring))
		n, err := rdr.Read(buf)
		if err == nil {
			t.Fatal("expected an error with frac", frac)
		}
		want := int(float32(len(longstring)) * (1 - frac))
		if n != want {
			t.Fatalf("frac %v kept %d wanted %d", frac, n, want)
		}
		if !bytes.Equal(buf[:n], []byte(longstring[:n])) {
			t.Fatal("kept part was changed")
		}
	}
}

func TestZeroFile(t *testing.T) {
	rdr := brokenio.NewReader(io.NopCloser(strings.NewReader(longstring)))
	rdr.SetProbZeroFile(1)
	got, err := io.ReadAll(rdr)
	if err != nil || len(got) != 0 {
		t.Fatal("wanted a zero length read, got", len(got), err)
	}
}
