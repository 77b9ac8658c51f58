// Package logging builds zap loggers from the log modes of the project
// configuration (log, warn, error and debug).
package logging
