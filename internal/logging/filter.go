package logging

import "go.uber.org/zap/zapcore"

// CheckKey is the field every per-check logger carries.
const CheckKey = "check"

// filterCore keeps entries of the listed checks. Entries not tied to a check
// are kept only when general is set. An empty list keeps every check.
type filterCore struct {
	zapcore.Core
	checks  map[string]bool
	general bool

	check string
	bound bool
}

func newFilterCore(core zapcore.Core, checks []string, general bool) zapcore.Core {
	if len(checks) == 0 && general {
		return core
	}
	m := make(map[string]bool, len(checks))
	for _, c := range checks {
		m[c] = true
	}
	return &filterCore{Core: core, checks: m, general: general}
}

func (c *filterCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.Core = c.Core.With(fields)
	if name, ok := checkField(fields); ok {
		clone.check, clone.bound = name, true
	}
	return &clone
}

func (c *filterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *filterCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	name, bound := c.check, c.bound
	if n, ok := checkField(fields); ok {
		name, bound = n, true
	}
	if !c.allows(name, bound) {
		return nil
	}
	return c.Core.Write(ent, fields)
}

func (c *filterCore) allows(name string, bound bool) bool {
	if !bound {
		return c.general
	}
	return len(c.checks) == 0 || c.checks[name]
}

func checkField(fields []zapcore.Field) (string, bool) {
	for i := len(fields) - 1; i >= 0; i-- {
		if f := fields[i]; f.Key == CheckKey && f.Type == zapcore.StringType {
			return f.String, true
		}
	}
	return "", false
}
