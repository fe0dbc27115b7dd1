package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeTrack = "track"
	ModeToken = "token"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeTrack, "tracker", "t":
		return ModeTrack, true
	case ModeToken, "tok":
		return ModeToken, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `track --config=./config/config.yaml`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<mode>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  ./driver-client --mode=<mode> [flags]

Modes:
  track      Run the driver tracking core (socket, sampling, waypoint visits)
  token      Mint a short-lived driver JWT for local testing

Examples:
  ./driver-client --mode=track --config=./config/config.yaml --samples=./fixes.ndjson
  ./driver-client --mode=token --secret=dev-secret --driver-id=drv_001`)
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./driver-client --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
