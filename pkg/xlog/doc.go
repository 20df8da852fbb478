// Package xlog is a leveled printf style logger on top of logrus.
//
// The package level functions write through a global logger:
//
//	xlog.SetLogLevel(xlog.DebugLevel)
//	xlog.Debug("hello %s %d", "world", 2018)
//
// Output goes to stdout as text by default. SetJSON switches the formatter,
// SetLogFile appends to a file instead, and Close releases that file.
//
// To rewrite or inspect messages implement LogHook:
//
//	func (h *MyHook) Hook(lv xlog.Level, msg *string) error {
//		*msg = "[raftlog] " + *msg
//		return nil
//	}
//	xlog.AddHook(&MyHook{})
package xlog
