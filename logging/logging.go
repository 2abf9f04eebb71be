/*
Package logging is the ambient structured-logging setup shared by the
server and client CLI shells, grounded on the logging config in
kryptco-kr/logging.go: same library (github.com/op/go-logging),
same "env var overrides an explicit default level" rule, generalized from
that repo's single global logger to one *logging.Logger per caller-chosen
module name so a process hosting both a Proxy and a Service can tell their
log lines apart.
*/
package logging

import (
	"os"

	"github.com/op/go-logging"
)

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}%{color:reset}`,
)

// EnvLevelVar is the environment variable that overrides whatever level a
// caller passes to Setup, mirroring KR_LOG_LEVEL in kryptco-kr.
const EnvLevelVar = "RPC_LOG_LEVEL"

// Setup configures go-logging's global backend for the named module and
// returns a logger bound to it. Calling Setup more than once (e.g. once
// per cmd/ shell) replaces the shared backend each time, matching
// go-logging's own single-backend-per-process model.
func Setup(module string, defaultLevel logging.Level) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(levelFromEnv(defaultLevel), module)
	logging.SetBackend(leveled)
	return logging.MustGetLogger(module)
}

func levelFromEnv(defaultLevel logging.Level) logging.Level {
	switch os.Getenv(EnvLevelVar) {
	case "CRITICAL":
		return logging.CRITICAL
	case "ERROR":
		return logging.ERROR
	case "WARNING":
		return logging.WARNING
	case "NOTICE":
		return logging.NOTICE
	case "INFO":
		return logging.INFO
	case "DEBUG":
		return logging.DEBUG
	default:
		return defaultLevel
	}
}
