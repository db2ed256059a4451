package runconfig

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Keys whose empty-string value means "no override" and is left off the
// command line.
var optionalKeys = map[string]bool{
	"freeze_modules": true,
	"freeze_at":      true,
}

// BuildCommand renders c as the trainer's flag string: " --key value" for
// every key in order. Values are not quoted or escaped.
func BuildCommand(c *Config) string {
	var b strings.Builder
	for _, key := range c.keys {
		value := c.values[key]
		if optionalKeys[key] && value == "" {
			continue
		}
		b.WriteString(" --")
		b.WriteString(key)
		b.WriteByte(' ')
		b.WriteString(FormatValue(value))
	}
	return b.String()
}

// FormatValue renders a single config value for the command line.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
