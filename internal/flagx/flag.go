// Package flagx holds small helpers for sharing os.Args between several
// independent flag sets without "flag provided but not defined" errors.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps only the flags named in allowed together with their values.
//
// Both "-f value" and "-f=value" (or "--flag=value") forms are recognised.
// A value is taken from the next argument only when it does not start with "-".
// The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		names[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, known := names[name]; known {
				out = append(out, arg)
			}
			continue
		}

		if _, known := names[arg]; !known {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigFiles are the paths of optional configuration sources given on the
// command line.
type ConfigFiles struct {
	JSON string // -c / -config
	Env  string // -env
}

// ConfigFileFlags extracts -c/-config and -env from args, ignoring every
// other argument.
func ConfigFileFlags(args []string) ConfigFiles {
	var files ConfigFiles

	fs := flag.NewFlagSet("config-files", flag.ContinueOnError)
	fs.StringVar(&files.JSON, "config", "", "path to JSON config file")
	fs.StringVar(&files.JSON, "c", "", "path to JSON config file (short)")
	fs.StringVar(&files.Env, "env", "", "path to .env file")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config", "-env", "--env"}))

	return files
}
