package queue

import (
	"bytes"
	"strings"
	"testing"

	"github.com/me/mgfw/pkg/logging"
)

func testSink() (*logging.SlogSink, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewSlogSinkWithWriter(logging.Warn, "text", &buf), &buf
}

func TestDrainIsFIFOAndIdempotent(t *testing.T) {
	sink, _ := testSink()
	q := NewQueue[string](sink, 7)

	q.Emplace(func() string { return "one" })
	q.Write("two")
	q.Write("three")

	var got []string
	q.Drain(func(v *string) { got = append(got, *v) })

	want := []string{"one", "two", "three"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected FIFO order %v, got %v", want, got)
		}
	}

	// Draining an empty queue is a no-op.
	var extra []string
	q.Drain(func(v *string) { extra = append(extra, *v) })
	if len(extra) != 0 {
		t.Fatalf("expected no callbacks on empty drain, got %v", extra)
	}
}

func TestResidualWarningOnClose(t *testing.T) {
	sink, buf := testSink()
	q := NewQueue[int](sink, 42)
	q.Write(1)
	q.Write(2)

	q.Close()

	out := buf.String()
	if !strings.Contains(out, "42") {
		t.Fatalf("expected warning to reference queue id 42, got: %s", out)
	}
}

func TestCloseWithoutResidualIsSilent(t *testing.T) {
	sink, buf := testSink()
	q := NewQueue[int](sink, 1)
	q.Close()

	if buf.Len() != 0 {
		t.Fatalf("expected no warning for an empty queue, got: %s", buf.String())
	}
}

func TestHiveTypeMismatch(t *testing.T) {
	sink, _ := testSink()
	h := NewHive(sink)

	if _, err := GetWriter[string](h, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := GetWriter[int](h, 7)
	var mismatch *ErrTypeMismatch
	if err == nil {
		t.Fatal("expected a type mismatch error")
	}
	if !errorsAs(err, &mismatch) {
		t.Fatalf("expected *ErrTypeMismatch, got %T", err)
	}
	if mismatch.ID != 7 {
		t.Fatalf("expected mismatch to reference channel 7, got %d", mismatch.ID)
	}
}

func TestHiveRoundTrip(t *testing.T) {
	sink, _ := testSink()
	h := NewHive(sink)

	w, err := GetWriter[string](h, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := GetReader[string](h, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.WriteBulk([]string{"a", "b", "c"})

	var got []string
	r.Drain(func(v *string) { got = append(got, *v) })
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
}

func errorsAs(err error, target **ErrTypeMismatch) bool {
	if e, ok := err.(*ErrTypeMismatch); ok {
		*target = e
		return true
	}
	return false
}
