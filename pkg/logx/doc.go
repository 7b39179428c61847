// Package logx is the structured logging layer of wifistatus.
//
// Logger wraps zerolog so call sites stay terse (log.Info("msg", logx.String(...)))
// while the Service underneath can swap sinks at runtime:
//   - console output for humans (short timestamp + file:line caller)
//   - JSON lines in a file
//   - warn+ lines forwarded to a Telegram chat, rate limited
package logx
