package scheduler

import (
	"fmt"

	"wifistatus/pkg/logx"
)

// cronLogger adapts logx to cron.Logger. cron's own chatter (start, wake,
// run) goes to trace; an overlap skip is worth an info line.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.log.Info("poll trigger skipped, previous cycle still running")
		return
	}
	l.log.Trace("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		k := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			out = append(out, logx.String("extra", k))
			break
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
