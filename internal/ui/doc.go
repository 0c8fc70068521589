// Package ui renders the styled output of the ecofan CLI commands.
//
// These components follow a "print once" pattern: a Header at the start of
// a command, then a Result box or a fan table at the end. Nothing here is
// interactive except Confirm, which reads a single y/N line.
//
// Logging is controlled separately through ECOFAN_LOG_LEVEL. When it is
// unset, zap stays silent and only this package's output is shown.
package ui
