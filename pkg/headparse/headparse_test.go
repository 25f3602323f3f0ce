package headparse

import (
	"errors"
	"testing"

	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/stream"
)

func TestParseBlockSimple(t *testing.T) {
	raw := "Content-Type: text/plain\r\nContent-Length: 5\r\n\r\nbody"
	src := stream.NewSimpleByteSource([]byte(raw))
	s := NewScanner(src, Limits{})
	fields, err := ParseBlock(s, Limits{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d: %+v", len(fields), fields)
	}
	if fields[0].Name != "Content-Type" || fields[0].Value != "text/plain" {
		t.Fatalf("field[0] = %+v", fields[0])
	}
	if fields[1].Name != "Content-Length" || fields[1].Value != "5" {
		t.Fatalf("field[1] = %+v", fields[1])
	}

	rest := s.Unconsumed()
	if string(rest) != "body" {
		t.Fatalf("unconsumed = %q", rest)
	}
}

func TestParseBlockFoldedContinuation(t *testing.T) {
	raw := "X-Long: line one\r\n value two\r\n\r\n"
	src := stream.NewSimpleByteSource([]byte(raw))
	s := NewScanner(src, Limits{})
	fields, err := ParseBlock(s, Limits{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %+v", fields)
	}
	if fields[0].Value != "line one value two" {
		t.Fatalf("folded value = %q", fields[0].Value)
	}
}

func TestParseBlockMalformedLineFails(t *testing.T) {
	src := stream.NewSimpleByteSource([]byte("not-a-header-line\r\n\r\n"))
	s := NewScanner(src, Limits{})
	if _, err := ParseBlock(s, Limits{}); err == nil {
		t.Fatal("expected protocol error for missing colon")
	}
}

func TestParseBlockOverLimitFieldValue(t *testing.T) {
	src := stream.NewSimpleByteSource([]byte("X: aaaaaaaaaa\r\n\r\n"))
	s := NewScanner(src, Limits{})
	if _, err := ParseBlock(s, Limits{MaxFieldValueBytes: 3}); err == nil {
		t.Fatal("expected over-limit error")
	}
}

func TestScannerNextLineEOFWithNoPartialLine(t *testing.T) {
	src := stream.NewSimpleByteSource([]byte("a\r\n"))
	s := NewScanner(src, Limits{})
	if _, err := s.NextLine(); err != nil {
		t.Fatalf("first line: %v", err)
	}
	if _, err := s.NextLine(); !errors.Is(err, async.End) {
		t.Fatalf("expected End, got %v", err)
	}
}

func TestScannerTotalBytesOverLimit(t *testing.T) {
	src := stream.NewSimpleByteSource([]byte("aaaaaaaaaaaaaaaaaaaa\r\n"))
	s := NewScanner(src, Limits{MaxTotalBytes: 5})
	if _, err := s.NextLine(); err == nil {
		t.Fatal("expected over-limit error for total bytes")
	}
}
