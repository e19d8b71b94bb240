package pipeline

// Process exit codes.
const (
	ExitOK             = 0
	ExitConfiguration  = 1
	ExitAbandoned      = 2
	ExitDeliveryFailed = 3
)

// ExitCode maps an outcome to the process exit code. Handled pipeline failures exit 0 unless strict is set.
func ExitCode(o Outcome, strict bool) int {
	switch {
	case o.Err == nil || !strict:
		return ExitOK
	case o.Abandoned:
		return ExitAbandoned
	default:
		return ExitDeliveryFailed
	}
}
