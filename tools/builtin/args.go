package builtin

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArgument marks malformed tool arguments. It is an unexpected failure:
// a caller that sends the wrong shape has a bug.
var ErrInvalidArgument = errors.New("invalid tool argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func requiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok {
		return "", invalidf("'%s' must be a string", key)
	}
	return v, nil
}

func optionalString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", invalidf("'%s' must be a string or null", key)
	}
	return v, nil
}

func optionalBool(args map[string]any, key string, def bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, invalidf("'%s' must be a bool or null", key)
	}
	return v, nil
}

// stringList accepts []string or the []any produced by JSON decoding.
func stringList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func optionalStringList(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := stringList(raw)
	if !ok {
		return nil, invalidf("'%s' must be a list of strings or null", key)
	}
	return v, nil
}

func optionalSeconds(args map[string]any, key string) (time.Duration, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, invalidf("'%s' must be a number or null", key)
	}
}

func optionalStringMap(args map[string]any, key string) (map[string]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]string:
		return v, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalidf("'%s' values must be strings", key)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, invalidf("'%s' must be a string map or null", key)
	}
}

func optionalInt(args map[string]any, key string, def int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, invalidf("'%s' must be an integer or null", key)
}
