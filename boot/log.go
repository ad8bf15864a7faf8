package boot

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// GlogLogger is the default Logger. Debug messages need -v=2, info
// messages -v=1. Errors are always logged.
type GlogLogger struct{}

// Debug implements Logger.
func (GlogLogger) Debug(msg string, keysAndValues ...interface{}) {
	if glog.V(2) {
		glog.InfoDepth(1, format(msg, keysAndValues))
	}
}

// Info implements Logger.
func (GlogLogger) Info(msg string, keysAndValues ...interface{}) {
	if glog.V(1) {
		glog.InfoDepth(1, format(msg, keysAndValues))
	}
}

// Error implements Logger.
func (GlogLogger) Error(msg string, keysAndValues ...interface{}) {
	glog.ErrorDepth(1, format(msg, keysAndValues))
}

// format renders msg followed by key=value pairs. A trailing key without a
// value is printed on its own.
func format(msg string, kv []interface{}) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}
