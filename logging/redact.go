package logging

import (
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

// RedactedPlaceholder replaces any value recognized as a secret.
const RedactedPlaceholder = "[REDACTED]"

// secretPatterns match credentials embedded in free text.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sk-[a-z0-9_-]{20,}`),                // openai
	regexp.MustCompile(`(?i)hf_[a-z0-9]{30,}`),                  // hugging face
	regexp.MustCompile(`\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}`),    // bcrypt
	regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]{20,}`),         // auth header
	regexp.MustCompile(`(?i)(api_key|token)\s*[:=]\s*[^\s,;]{8,}`),
}

// secretKeyParts mark a field name whose whole value is secret.
var secretKeyParts = []string{"APIKEY", "PASSWORD", "SECRET", "TOKEN", "AUTHORIZATION"}

// RedactSensitiveData replaces every secret-looking substring of s.
func RedactSensitiveData(s string) string {
	for _, re := range secretPatterns {
		s = re.ReplaceAllString(s, RedactedPlaceholder)
	}
	return s
}

// IsSensitiveField reports whether a field or header name implies a secret
// value. Separators are ignored, so X-API-Key and openai_api_key both match.
func IsSensitiveField(name string) bool {
	key := strings.NewReplacer("-", "", "_", "", ".", "").Replace(strings.ToUpper(name))
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func redactField(f zapcore.Field) zapcore.Field {
	switch {
	case IsSensitiveField(f.Key):
		return zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: RedactedPlaceholder}
	case f.Type == zapcore.StringType:
		f.String = RedactSensitiveData(f.String)
	}
	return f
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

// redactCore scrubs the message and fields of every entry before the
// wrapped core encodes them.
type redactCore struct {
	zapcore.Core
}

func newRedactCore(c zapcore.Core) zapcore.Core {
	if _, ok := c.(redactCore); ok {
		return c
	}
	return redactCore{c}
}

func (c redactCore) With(fields []zapcore.Field) zapcore.Core {
	return redactCore{c.Core.With(redactFields(fields))}
}

func (c redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = RedactSensitiveData(ent.Message)
	return c.Core.Write(ent, redactFields(fields))
}
