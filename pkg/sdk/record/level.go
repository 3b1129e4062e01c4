package record

// Level is a log severity. Values 0-7 follow RFC 5424 (emergency is most
// severe); 8 is an extension for trace output.
type Level uint8

const (
	LevelEmergency Level = iota
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = [...]string{
	"emergency", "alert", "critical", "error",
	"warning", "notice", "info", "debug", "trace",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// High reports whether the severity forces high-priority handling
// (emergency through error).
func (l Level) High() bool { return l <= LevelError }
