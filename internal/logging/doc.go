// Package logging builds slog loggers for the workflow CLI and library.
//
// Loggers are constructed from Options (level, format, output paths) or from
// application config. Console output uses a compact human-readable handler;
// JSON output is available for log shipping. Standardized field names keep
// session, step, and correlation attributes consistent across components, and
// a ProgressSampler throttles high-frequency upload/task progress records.
//
// Components receive loggers by injection; there are no package-level debug
// flags.
package logging
