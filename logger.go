// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import apexlog "github.com/apex/log"

// Logger is the minimal logging interface the reactor and [Emulator] use
// for lifecycle and error reporting. It is intentionally shaped like
// ooni/netem's own Logger interface, so any adapter written for that
// ecosystem also satisfies this one.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
}

// apexLogger adapts the package-level github.com/apex/log logger to
// [Logger]. It is the default used when no [Logger] option is supplied.
type apexLogger struct{}

func (apexLogger) Debugf(format string, v ...any) { apexlog.Debugf(format, v...) }
func (apexLogger) Infof(format string, v ...any)  { apexlog.Infof(format, v...) }
func (apexLogger) Warnf(format string, v ...any)  { apexlog.Warnf(format, v...) }

// defaultLogger is the zero-configuration [Logger] used by [New] when the
// caller does not supply one via [WithLogger].
var defaultLogger Logger = apexLogger{}

// discardLogger silently drops every message. Handy in tests that want to
// assert on timing without apex/log's default handler touching stderr.
type discardLogger struct{}

func (discardLogger) Debugf(format string, v ...any) {}
func (discardLogger) Infof(format string, v ...any)  {}
func (discardLogger) Warnf(format string, v ...any)  {}
