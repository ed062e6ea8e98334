package cmd

// Exit codes for httpcraft CLI
const (
	// ExitSuccess indicates the exchange completed
	ExitSuccess = 0

	// ExitHTTPError indicates the server answered with a 4xx or 5xx status
	// and --fail was given
	ExitHTTPError = 1

	// ExitPersistenceError indicates a state, history or response file
	// could not be read or written
	ExitPersistenceError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
