// Package checksum verifies firmware image integrity before extraction.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/tosih/ecu-tuner/pkg/firmware"
)

// Status separates a confirmed image from one nobody made a claim about
type Status int

const (
	Unverified Status = iota
	Confirmed
	Invalid
)

func (s Status) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Invalid:
		return "invalid"
	default:
		return "unverified"
	}
}

// MarshalText lets Status appear as a string in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Algorithms reported in Result.Algorithm
const (
	AlgSHA256 = "sha256"
	AlgCRC32  = "crc32"
	AlgLength = "length"
)

// Result is the outcome of Validate. Valid is always
// ExpectedDigest == ActualDigest.
type Result struct {
	Valid          bool   `json:"valid"`
	Status         Status `json:"status"`
	Algorithm      string `json:"algorithm"`
	ExpectedDigest string `json:"expected_digest"`
	ActualDigest   string `json:"actual_digest"`
	Note           string `json:"note,omitempty"`
}

// IntegrityError reports an empty image, a length mismatch or a digest
// mismatch. It is informational: extraction goes on without trust.
type IntegrityError struct {
	Reason   string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum: %s (expected %s, got %s)", e.Reason, e.Expected, e.Actual)
}

// Digest is the SHA-256 of data as lowercase hex.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate checks img against an expected SHA-256 digest, or the header
// CRC32 when expected is empty. Without either claim the result is valid
// but Unverified.
func Validate(img *firmware.Image, expected string) (Result, error) {
	if img == nil || img.Len() == 0 {
		return fail(AlgLength, "empty image", "non-empty", "0 bytes")
	}

	hdr, hasHdr := img.Header()
	if hasHdr && int(hdr.DeclaredLength) != img.Len() {
		return fail(AlgLength, "declared length mismatch",
			fmt.Sprintf("%d bytes", hdr.DeclaredLength),
			fmt.Sprintf("%d bytes", img.Len()))
	}

	actual := Digest(img.Bytes())

	if expected = strings.ToLower(strings.TrimSpace(expected)); expected != "" {
		if expected != actual {
			return fail(AlgSHA256, "digest mismatch", expected, actual)
		}
		return Result{
			Valid:          true,
			Status:         Confirmed,
			Algorithm:      AlgSHA256,
			ExpectedDigest: expected,
			ActualDigest:   actual,
		}, nil
	}

	if hasHdr && hdr.HasChecksum() {
		want := fmt.Sprintf("%08x", hdr.CRC32)
		got := fmt.Sprintf("%08x", crc32.ChecksumIEEE(img.Payload()))
		if want != got {
			return fail(AlgCRC32, "header checksum mismatch", want, got)
		}
		return Result{
			Valid:          true,
			Status:         Confirmed,
			Algorithm:      AlgCRC32,
			ExpectedDigest: want,
			ActualDigest:   got,
		}, nil
	}

	return Result{
		Valid:          true,
		Status:         Unverified,
		Algorithm:      AlgSHA256,
		ExpectedDigest: actual,
		ActualDigest:   actual,
		Note:           "no integrity claim available to cross-check",
	}, nil
}

func fail(alg, reason, expected, actual string) (Result, error) {
	return Result{
			Valid:          false,
			Status:         Invalid,
			Algorithm:      alg,
			ExpectedDigest: expected,
			ActualDigest:   actual,
			Note:           reason,
		}, &IntegrityError{
			Reason:   reason,
			Expected: expected,
			Actual:   actual,
		}
}
