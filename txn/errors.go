package txn

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for the transaction engine: transient (retried internally by
// Begin), aborted (caller-initiated, surfaced), and configuration (fatal,
// surfaced).
const (
	// ErrCodeTransientConflict covers stamp violations, a TVar write-locked
	// by another goroutine, a Serializable modrev violation, and write-lock
	// acquisition timeouts. Begin recovers from all of these by retrying.
	ErrCodeTransientConflict errors.ErrorCode = "STM_TRANSIENT_CONFLICT"
	// ErrCodeAborted is returned when the body called SetRollbackOnly or
	// Rollback; Begin does not retry this outcome.
	ErrCodeAborted errors.ErrorCode = "STM_ABORTED"
	// ErrCodeConfiguration is returned by Manager.Build for an unsupported
	// (Concurrency, Isolation) combination.
	ErrCodeConfiguration errors.ErrorCode = "STM_CONFIGURATION"
)

func newTransientConflict(reason string, fields map[string]interface{}) error {
	return errors.NewWithContext(ErrCodeTransientConflict, reason, fields).AsRetryable()
}

func newAborted(label string) error {
	return errors.NewWithField(ErrCodeAborted, "transaction aborted by caller", "label", label)
}

func newConfigurationError(concurrency Concurrency, isolation Isolation) error {
	return errors.NewWithContext(ErrCodeConfiguration, "unsupported concurrency/isolation combination", map[string]interface{}{
		"concurrency": concurrency.String(),
		"isolation":   isolation.String(),
	})
}

// IsAborted reports whether err is the terminal outcome of a caller-initiated
// rollback.
func IsAborted(err error) bool {
	return errors.HasCode(err, ErrCodeAborted)
}

// IsConfigurationError reports whether err was returned by Manager.Build
// because of an unsupported (Concurrency, Isolation) pair.
func IsConfigurationError(err error) bool {
	return errors.HasCode(err, ErrCodeConfiguration)
}

// IsRetryable reports whether err is a transient conflict that Begin already
// retried internally; callers normally never see this, since Begin loops
// until commit or a fatal outcome. It is exposed for diagnostics/tests.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
