package checksum

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Ning0612/Gitpush/internal/domain"
)

// TestSum tests known git blob object ids
func TestSum(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: EmptyBlobHash},
		{name: "php", content: "<?php echo 1;", want: "74e80946d0da8372c10f17874a564f2ece67fa67"},
		{name: "hello world", content: "hello world", want: "95d09f2b10159347eece71399a7e2e907ea3df4f"},
		{name: "trailing newline", content: "hello world\n", want: "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"},
		{name: "css", content: "body{x:1}", want: "820b2b9bd0394fc933ae8126eaca681e4993b89b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sum([]byte(tt.content))
			if got != tt.want {
				t.Errorf("Sum(%q) = %s, want %s", tt.content, got, tt.want)
			}
		})
	}
}

// TestSumNil tests that nil content hashes like empty content
func TestSumNil(t *testing.T) {
	if got := Sum(nil); got != EmptyBlobHash {
		t.Errorf("Sum(nil) = %s, want %s", got, EmptyBlobHash)
	}
}

// TestSumNoNormalization tests that CRLF and LF content hash differently
func TestSumNoNormalization(t *testing.T) {
	if Sum([]byte("a\r\nb")) == Sum([]byte("a\nb")) {
		t.Error("CRLF and LF content must not hash identically")
	}
}

// TestCalculateMatchesSum tests the streaming path against the in-memory one
func TestCalculateMatchesSum(t *testing.T) {
	calc := NewCalculator(Options{BufferSize: 3}) // tiny buffer forces many reads
	ctx := context.Background()

	for _, content := range []string{"", "hello world", "hello world!", strings.Repeat("x", 1000)} {
		got, err := calc.Calculate(ctx, strings.NewReader(content), int64(len(content)))
		if err != nil {
			t.Fatalf("Calculate(%d bytes) failed: %v", len(content), err)
		}
		if want := Sum([]byte(content)); got != want {
			t.Errorf("Calculate(%d bytes) = %s, want %s", len(content), got, want)
		}
	}
}

// TestCalculateSizeMismatch tests content that changed size while hashing
func TestCalculateSizeMismatch(t *testing.T) {
	calc := NewDefaultCalculator()
	ctx := context.Background()

	if _, err := calc.Calculate(ctx, strings.NewReader("hello"), 3); err == nil {
		t.Error("expected error when content is longer than size")
	}
	if _, err := calc.Calculate(ctx, strings.NewReader("hi"), 10); err == nil {
		t.Error("expected error when content is shorter than size")
	}
}

// TestCalculateMaxSize tests the size limit
func TestCalculateMaxSize(t *testing.T) {
	calc := NewCalculator(Options{MaxSize: 4})
	ctx := context.Background()

	_, err := calc.Calculate(ctx, bytes.NewReader([]byte("12345")), 5)
	if !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	if _, err := calc.Calculate(ctx, bytes.NewReader([]byte("1234")), 4); err != nil {
		t.Errorf("content at the limit should hash: %v", err)
	}
}

// TestCalculateNilReader tests absent content
func TestCalculateNilReader(t *testing.T) {
	calc := NewDefaultCalculator()
	if _, err := calc.Calculate(context.Background(), nil, 0); err == nil {
		t.Error("expected error for nil reader")
	}
}

// TestContextCancellation tests that calculation respects context cancellation
func TestContextCancellation(t *testing.T) {
	calc := NewDefaultCalculator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	content := strings.Repeat("a", 1024)
	_, err := calc.Calculate(ctx, strings.NewReader(content), int64(len(content)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsHash(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{EmptyBlobHash, true},
		{"74e80946d0da8372c10f17874a564f2ece67fa67", true},
		{"74E80946D0DA8372C10F17874A564F2ECE67FA67", false},
		{"74e80946", false},
		{"", false},
		{"zze80946d0da8372c10f17874a564f2ece67fa67", false},
	}

	for _, tt := range tests {
		if got := IsHash(tt.in); got != tt.want {
			t.Errorf("IsHash(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("ABCDEF", "abcdef") {
		t.Error("Equal should ignore case")
	}
	if Equal("abc", "abd") {
		t.Error("Equal should detect different ids")
	}
}
