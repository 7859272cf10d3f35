package core

// Process exit codes shared by the command-line tools and the service.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1

	// 128 + signal number, matching shell conventions.
	ExitCodeSIGINT  = 130
	ExitCodeSIGTERM = 143
)

// ExitCodeFor maps a run error to a process exit code. Every failure is
// reported as ExitCodeError; callers learn the cause from the message.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	return ExitCodeError
}
