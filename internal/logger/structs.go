package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool
	UseConsoleWriter bool
}

// LogFile implements a rolling file based logger.
type LogFile struct {
	Enabled bool
	Path    string

	AccessLog string
	ErrorLog  string
	InfoLog   string

	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// Log implements the logger config.
type Log struct {
	LogLevel string // trace, debug, info, warn, error.

	ReportCaller bool

	ServiceName string

	// EnableAccessLogToConsole writes gin access logs to stdout when Console.Enabled is set.
	EnableAccessLogToConsole bool

	Console Console
	File    LogFile
}

// DefaultFile returns rolling file settings rooted at path.
func DefaultFile(path string) LogFile {
	return LogFile{
		Enabled:    path != "",
		Path:       path,
		AccessLog:  "access.log",
		ErrorLog:   "error.log",
		InfoLog:    "info.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
	}
}
