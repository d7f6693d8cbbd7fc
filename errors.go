/*
@Description: Error kinds surfaced by the payloaders
@Language: Go 1.23.4
*/

package moonlightpay

import (
	"fmt"

	"moonlightpay/internal/fec"

	"github.com/pkg/errors"
)

// Sentinel errors. Use errors.Is against these to classify a failure
// without depending on the concrete wrapper types below.
var (
	// ErrConfigurationInvalid is returned at construction time when a
	// VideoConfig or AudioConfig violates one of the documented invariants.
	ErrConfigurationInvalid = errors.New("moonlightpay: configuration invalid")

	// ErrCryptoFailure is returned when AES-CBC encryption of a packet
	// fails in the underlying cipher. A bad key length is rejected at
	// construction with ErrConfigurationInvalid, and a ciphertext too large
	// for its shard is reported as ErrOversizedPayload.
	ErrCryptoFailure = errors.New("moonlightpay: crypto failure")

	// ErrOversizedPayload is returned when an encrypted or framed payload no
	// longer fits inside the configured shard payload region.
	ErrOversizedPayload = errors.New("moonlightpay: oversized payload")

	// ErrUnrecoverableLoss is returned by the Reed-Solomon adapter's
	// reconstruct operation when more shards are erased than a block can
	// tolerate. It is never produced on the send path; it is exposed so the
	// receive-side adapter exercised by tests shares the same taxonomy.
	ErrUnrecoverableLoss = fec.ErrUnrecoverableLoss
)

// ConfigurationInvalidError explains which invariant a configuration broke.
type ConfigurationInvalidError struct {
	Reason string
}

func (e *ConfigurationInvalidError) Error() string {
	return ErrConfigurationInvalid.Error() + ": " + e.Reason
}

func (e *ConfigurationInvalidError) Unwrap() error { return ErrConfigurationInvalid }

// CryptoFailureError wraps the underlying cipher error, if any.
type CryptoFailureError struct {
	Cause error
}

func (e *CryptoFailureError) Error() string {
	if e.Cause == nil {
		return ErrCryptoFailure.Error()
	}
	return ErrCryptoFailure.Error() + ": " + e.Cause.Error()
}

func (e *CryptoFailureError) Unwrap() error { return ErrCryptoFailure }

// OversizedPayloadError reports the measured and allowed sizes.
type OversizedPayloadError struct {
	Size, Limit int
}

func (e *OversizedPayloadError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds limit of %d", ErrOversizedPayload.Error(), e.Size, e.Limit)
}

func (e *OversizedPayloadError) Unwrap() error { return ErrOversizedPayload }
