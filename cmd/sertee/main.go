// File: cmd/sertee/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// sertee publishes multiple synthetic copies of one character device:
// every copy sees the full source read stream, writes to any copy pass
// through to the source.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/momentics/sertee/devfs"
	"github.com/momentics/sertee/tee"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, code, proceed := parseConfig(args, stdout, stderr)
	if !proceed {
		return code
	}

	t, err := tee.New(cfg, devfs.NewFramework())
	if err != nil {
		fmt.Fprintf(stderr, "sertee: %v\n", err)
		if errors.Is(err, tee.ErrSourceOpen) {
			var errno syscall.Errno
			if errors.As(err, &errno) {
				return int(errno)
			}
		}
		return 1
	}
	defer t.Close()

	if err := t.Run(); err != nil {
		fmt.Fprintf(stderr, "sertee: %v\n", err)
		return 1
	}
	return 0
}

// parseConfig merges flags over the optional config file over the
// defaults. proceed is false when the process should exit with code.
func parseConfig(args []string, stdout, stderr io.Writer) (cfg *tee.Config, code int, proceed bool) {
	fs := flag.NewFlagSet("sertee", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var (
		names      string
		source     string
		bufSize    int
		configPath string
	)
	fs.StringVar(&names, "n", "", "device names")
	fs.StringVar(&names, "name", "", "device names")
	fs.StringVar(&source, "S", "", "source device name")
	fs.StringVar(&source, "source", "", "source device name")
	fs.IntVar(&bufSize, "bufsize", 0, "size of internal buffer")
	fs.StringVar(&configPath, "config", "", "configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			showHelp(stdout)
			return nil, 0, false
		}
		fmt.Fprintf(stderr, "sertee: %v\n", err)
		return nil, 1, false
	}

	cfg = tee.DefaultConfig()
	if configPath != "" {
		fc, err := loadConfigFile(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "sertee: %v\n", err)
			return nil, 1, false
		}
		cfg.Source = fc.Source
		cfg.Names = fc.Names
		if fc.BufSize > 0 {
			cfg.BufSize = fc.BufSize
		}
	}
	if names != "" {
		cfg.Names = tee.SplitNames(names)
	}
	if source != "" {
		cfg.Source = source
	}
	// An explicit --bufsize always applies, so values below the ring
	// minimum (zero and negatives included) are rejected by tee.New.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "bufsize" {
			cfg.BufSize = bufSize
		}
	})

	if len(cfg.Names) == 0 {
		fmt.Fprintln(stderr, "sertee: error, device names required")
		return nil, 1, false
	}
	if cfg.Source == "" {
		fmt.Fprintln(stderr, "sertee: error, source name required")
		return nil, 1, false
	}
	return cfg, 0, true
}

func showHelp(w io.Writer) {
	fmt.Fprintf(w, "usage: sertee [options]\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "options:\n")
	fmt.Fprintf(w, "    --help|-h             print this help message\n")
	fmt.Fprintf(w, "    --name=NAME|-n NAME   device names (mandatory)\n")
	fmt.Fprintf(w, "    --source=NAME|-S NAME source device name (mandatory)\n")
	fmt.Fprintf(w, "    --bufsize=SIZE        size of internal buffer (default: %d bytes)\n", tee.DefaultBufSize)
	fmt.Fprintf(w, "    --config=FILE         read defaults from a YAML file\n")
	fmt.Fprintf(w, "\n")
}
