package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLinesTrimmedAndNumbered(t *testing.T) {
	path := writeFile(t, "  first line  \nsecond\r\n\tthird\n")

	var texts []string
	var numbers []int
	for l, err := range New(path).Lines(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		texts = append(texts, l.Text)
		numbers = append(numbers, l.Number)
	}

	want := []string{"first line", "second", "third"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, texts)
	}
	for i, n := range numbers {
		if n != i+1 {
			t.Errorf("expected line number %d, got %d", i+1, n)
		}
	}
}

func TestLinesNoTrailingNewline(t *testing.T) {
	path := writeFile(t, "a\nb")

	count := 0
	for _, err := range New(path).Lines(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 lines, got %d", count)
	}
}

func TestLinesRestartable(t *testing.T) {
	path := writeFile(t, "one\ntwo\nthree\n")
	src := New(path)

	for run := 0; run < 2; run++ {
		var got []string
		for l, err := range src.Lines(context.Background()) {
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, l.Text)
		}
		if len(got) != 3 || got[0] != "one" {
			t.Errorf("run %d: expected to restream from start, got %q", run, got)
		}
	}
}

func TestLinesMissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope.log"))

	var gotErr error
	calls := 0
	for _, err := range src.Lines(context.Background()) {
		calls++
		gotErr = err
	}

	if calls != 1 {
		t.Errorf("expected exactly one yield, got %d", calls)
	}
	var ioErr *IOError
	if !errors.As(gotErr, &ioErr) {
		t.Fatalf("expected *IOError, got %v", gotErr)
	}
	if ioErr.Op != "open" {
		t.Errorf("expected op open, got %s", ioErr.Op)
	}
	if !errors.Is(gotErr, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", ioErr.Err)
	}
}

func TestLinesOversizedLineTruncated(t *testing.T) {
	long := strings.Repeat("x", maxLineSize+10)
	path := writeFile(t, "ok 1\nok 2\n"+long+"\r\nafter\n")

	var got []string
	for l, err := range New(path, WithBufferSize(64)).Lines(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, l.Text)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(got))
	}
	if len(got[2]) != maxLineSize {
		t.Errorf("expected long line cut to %d bytes, got %d", maxLineSize, len(got[2]))
	}
	if got[3] != "after" {
		t.Errorf("expected line after the long one, got %q", got[3])
	}
}

func TestLinesReadError(t *testing.T) {
	// Opening a directory succeeds on Linux; reading it does not.
	var gotErr error
	count := 0
	for _, err := range New(t.TempDir()).Lines(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		count++
	}

	if count != 0 {
		t.Errorf("expected no lines, got %d", count)
	}
	var ioErr *IOError
	if !errors.As(gotErr, &ioErr) {
		t.Fatalf("expected *IOError, got %v", gotErr)
	}
	if ioErr.Op != "open" && ioErr.Op != "read" {
		t.Errorf("expected op open or read, got %s", ioErr.Op)
	}
}

func TestLinesMaxLines(t *testing.T) {
	path := writeFile(t, "1\n2\n3\n4\n5\n")

	count := 0
	for _, err := range New(path, WithMaxLines(3)).Lines(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 lines, got %d", count)
	}
}

func TestLinesEarlyBreak(t *testing.T) {
	path := writeFile(t, "1\n2\n3\n")

	for l, err := range New(path, WithBufferSize(16)).Lines(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		if l.Number == 1 {
			break
		}
	}

	// The handle was released, so the file can be removed and recreated.
	if err := os.Remove(path); err != nil {
		t.Errorf("expected file to be removable after break: %v", err)
	}
}

func TestLinesCancelled(t *testing.T) {
	path := writeFile(t, "1\n2\n3\n")
	ctx, cancel := context.WithCancel(context.Background())

	var gotErr error
	count := 0
	for _, err := range New(path).Lines(ctx) {
		if err != nil {
			gotErr = err
			break
		}
		count++
		cancel()
	}

	if count != 1 {
		t.Errorf("expected 1 line before cancellation, got %d", count)
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", gotErr)
	}
}
