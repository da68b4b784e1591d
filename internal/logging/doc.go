// Package logger provides leveled console logging for ctx-sync.
//
// Verbosity is controlled by two flags on the root command:
//
//   - --verbose: shows info messages
//   - --debug: shows info and debug messages
//
// Warnings are always written to stderr. Errors are written with --verbose
// or --debug; the CLI layer is responsible for the user-facing message.
//
// Nothing logged through this package may contain a secret value or private
// key material. Callers pass bucket names, key names and fingerprints, and run
// any user-supplied value through utils.Redact first.
//
//	log := logger.Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Re-encrypted %d buckets", n)
package logger
