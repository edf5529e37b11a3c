package routine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Comment annotations, one directive per line, case-insensitive keys:
//
//	http [METHOD] [path]
//	authorize [role ...]
//	anonymous
//	cached
//	cache-expires-in <duration>
//	cache-max-rows <n>
//	retry <strategy>
//	errors <policy>
//	timeout <duration>
//	disabled
//
// Lines that match no directive are prose and are ignored, so annotations
// can live inside an ordinary routine comment.

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true, "HEAD": true,
}

// ApplyAnnotations parses the directives in comment over base and returns
// the resulting endpoint. Malformed directives leave base untouched and are
// reported as warnings keyed for logging.
func ApplyAnnotations(base Endpoint, comment string) (Endpoint, []string) {
	ep := base
	var warnings []string

	for _, line := range strings.Split(comment, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		key := strings.ToLower(fields[0])
		args := fields[1:]

		switch key {
		case "http":
			for _, arg := range args {
				switch {
				case knownMethods[strings.ToUpper(arg)]:
					ep.Method = strings.ToUpper(arg)
				case strings.HasPrefix(arg, "/"):
					ep.Path = arg
				default:
					warnings = append(warnings, fmt.Sprintf("http: %q is neither a method nor a path", arg))
				}
			}

		case "authorize":
			ep.RequiresAuth = true
			ep.Anonymous = false
			ep.Roles = append([]string(nil), args...)

		case "anonymous":
			ep.Anonymous = true
			ep.RequiresAuth = false
			ep.Roles = nil

		case "cached":
			ep.Cached = true

		case "cache-expires-in":
			if d, ok := oneDuration(key, args, &warnings); ok {
				ep.Cached = true
				ep.CacheTTL = d
			}

		case "cache-max-rows":
			if len(args) != 1 {
				warnings = append(warnings, "cache-max-rows: expected one integer")
				continue
			}
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || n < 0 {
				warnings = append(warnings, fmt.Sprintf("cache-max-rows: %q is not a non-negative integer", args[0]))
				continue
			}
			ep.CacheMaxRows = &n

		case "retry":
			if len(args) != 1 {
				warnings = append(warnings, "retry: expected one strategy name")
				continue
			}
			ep.RetryStrategy = args[0]

		case "errors":
			if len(args) != 1 {
				warnings = append(warnings, "errors: expected one policy name")
				continue
			}
			ep.ErrorPolicy = args[0]

		case "timeout":
			if d, ok := oneDuration(key, args, &warnings); ok {
				ep.Timeout = d
			}

		case "disabled":
			ep.Enabled = false
		}
	}
	return ep, warnings
}

func oneDuration(key string, args []string, warnings *[]string) (time.Duration, bool) {
	if len(args) != 1 {
		*warnings = append(*warnings, key+": expected one duration")
		return 0, false
	}
	d, err := time.ParseDuration(args[0])
	if err != nil || d <= 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s: %q is not a positive duration", key, args[0]))
		return 0, false
	}
	return d, true
}
