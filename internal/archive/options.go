package archive

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Options is the flat string configuration of a backend, as it appears under
// archive.options in the config file.
type Options map[string]string

// OptionError reports a backend option that could not be used.
type OptionError struct {
	Backend string
	Key     string
	Value   string
	Reason  string
	Cause   error
}

func (e *OptionError) Error() string {
	switch {
	case e.Key == "":
		return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
	case e.Value == "":
		return fmt.Sprintf("%s: option %s: %s", e.Backend, e.Key, e.Reason)
	default:
		return fmt.Sprintf("%s: option %s=%q: %s", e.Backend, e.Key, e.Value, e.Reason)
	}
}

func (e *OptionError) Unwrap() error { return e.Cause }

// Merge returns a copy of o overlaid with over. Empty values in over do not
// replace set values in o.
func (o Options) Merge(over Options) Options {
	out := make(Options, len(o)+len(over))
	maps.Copy(out, o)
	for k, v := range over {
		if v != "" || out[k] == "" {
			out[k] = v
		}
	}
	return out
}

// Reader parses options for one backend and remembers the first failure, so
// a factory can read every option and check Err once.
type Reader struct {
	backend string
	opts    Options
	err     error
}

// Read starts parsing opts on behalf of backend.
func (o Options) Read(backend string) *Reader {
	return &Reader{backend: backend, opts: o}
}

// Err returns the first error met while reading.
func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(key, reason string, cause error) {
	if r.err == nil {
		r.err = &OptionError{Backend: r.backend, Key: key, Value: r.opts[key], Reason: reason, Cause: cause}
	}
}

// String returns the option or def when unset.
func (r *Reader) String(key, def string) string {
	if v := r.opts[key]; v != "" {
		return v
	}
	return def
}

// Required returns the option and records an error when it is unset.
func (r *Reader) Required(key string) string {
	v := r.opts[key]
	if v == "" {
		r.fail(key, "cannot be empty", nil)
	}
	return v
}

// Bool accepts true/false, 1/0 and yes/no in any case.
func (r *Reader) Bool(key string, def bool) bool {
	v := r.opts[key]
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	r.fail(key, "must be a boolean (true/false, 1/0, yes/no)", nil)
	return def
}

// Int parses a base-10 integer.
func (r *Reader) Int(key string, def int) int {
	v := r.opts[key]
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, "must be an integer", err)
		return def
	}
	return i
}

// Int64 parses a base-10 64-bit integer.
func (r *Reader) Int64(key string, def int64) int64 {
	v := r.opts[key]
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(key, "must be an integer", err)
		return def
	}
	return i
}

// Duration accepts Go duration strings or whole seconds.
func (r *Reader) Duration(key string, def time.Duration) time.Duration {
	v := r.opts[key]
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	r.fail(key, "must be a duration (e.g. '5s', '1m30s') or integer seconds", nil)
	return def
}

// Path returns a required filesystem path with a leading ~ expanded.
func (r *Reader) Path(key string) string {
	v := r.Required(key)
	if v == "" {
		return ""
	}
	return ExpandPath(v)
}

// ExpandPath expands a leading ~/ to the home directory and cleans the path.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
		return path
	}
	return filepath.Clean(path)
}
