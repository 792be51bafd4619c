package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid paths)
	ExitDataError   = 3 // Data error (unrecognized identifier, malformed input)
	ExitAuthError   = 4 // Proxy authentication failure or timeout
	ExitNotFound    = 5 // Identifier not known to any metadata source
)
