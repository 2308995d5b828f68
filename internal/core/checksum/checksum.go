package checksum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/Ning0612/Gitpush/internal/domain"
)

// EmptyBlobHash is the git object id of a zero-length blob
const EmptyBlobHash = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"

// HashLength is the hex length of a SHA-1 object id
const HashLength = 40

// Options configures the checksum calculator
type Options struct {
	// MaxSize: files larger than this are rejected (0 = unlimited)
	// Default: 100MB, the remote store's single-file limit
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	// Default: 32KB
	BufferSize int
}

// DefaultOptions returns the recommended default options
func DefaultOptions() Options {
	return Options{
		MaxSize:    100 * 1024 * 1024, // 100MB
		BufferSize: 32 * 1024,         // 32KB
	}
}

// Calculator computes git blob hashes from a stream
type Calculator interface {
	// Calculate hashes exactly size bytes read from r.
	// The git blob header encodes the length, so size must be known up front.
	Calculate(ctx context.Context, r io.Reader, size int64) (string, error)
}

// DefaultCalculator implements Calculator with streaming support
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

// Sum returns the git blob hash of content: sha1("blob <len>\x00" + content).
// Bytes are hashed as stored; no decoding or newline normalization.
func Sum(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

// Calculate implements the Calculator interface
func (c *DefaultCalculator) Calculate(ctx context.Context, r io.Reader, size int64) (string, error) {
	if r == nil {
		return "", errors.New("nil content reader")
	}
	if size < 0 {
		return "", fmt.Errorf("negative size: %d", size)
	}
	if c.opts.MaxSize > 0 && size > c.opts.MaxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds maximum (%d bytes)", domain.ErrTooLarge, size, c.opts.MaxSize)
	}

	h := plumbing.NewHasher(plumbing.BlobObject, size)

	// Read one byte past size so a file that grew while hashing is detected
	limited := io.LimitReader(r, size+1)
	buffer := make([]byte, c.opts.BufferSize)
	total := int64(0)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := limited.Read(buffer)
		if n > 0 {
			total += int64(n)
			if total > size {
				return "", fmt.Errorf("content grew while hashing: expected %d bytes", size)
			}
			if _, hashErr := h.Write(buffer[:n]); hashErr != nil {
				return "", fmt.Errorf("hash write error: %w", hashErr)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	if total != size {
		return "", fmt.Errorf("content shrank while hashing: read %d of %d bytes", total, size)
	}

	return h.Sum().String(), nil
}

// IsHash reports whether s is a lowercase 40 character hex object id
func IsHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// Equal compares two object ids ignoring hex case
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
