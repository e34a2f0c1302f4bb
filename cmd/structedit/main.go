// Package main provides a command-line tool for inspecting and editing binary
// resource files.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/EchoTools/structedit/pkg/archive"
	"github.com/EchoTools/structedit/pkg/layouts"
	"github.com/EchoTools/structedit/pkg/resource"
	"github.com/EchoTools/structedit/pkg/structure"
)

var (
	mode           string
	dataDir        string
	resourceID     string
	kindName       string
	offsetArg      string
	outputPath     string
	codecName      string
	level          int
	recurse        bool
	forceOverwrite bool
	verbose        bool
)

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: dump, verify, add, remove, pack, unpack")
	flag.StringVar(&dataDir, "data", "", "Directory containing resources")
	flag.StringVar(&resourceID, "resource", "", "Resource path relative to -data (e.g., items/sword.itm)")
	flag.StringVar(&kindName, "kind", "", "Kind to add: record, ability, effect, entry, note, framecontent, filemetadata, frame")
	flag.StringVar(&offsetArg, "offset", "", "Byte offset inside the resource (decimal or 0x hex)")
	flag.StringVar(&outputPath, "output", "", "Output file for pack and unpack")
	flag.StringVar(&codecName, "codec", "zstd", "Archive codec for pack: zstd, zlib, lz4")
	flag.IntVar(&level, "level", archive.DefaultCompressionLevel, "Compression level for pack")
	flag.BoolVar(&recurse, "recurse", true, "Remove nested removable structures first")
	flag.BoolVar(&forceOverwrite, "force", false, "Allow overwriting an existing output file")
	flag.BoolVar(&verbose, "verbose", false, "Log diagnostic traces to stderr")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	env := &environment{
		src:      resource.NewDir(dataDir, resource.WithLogger(logger)),
		registry: layouts.NewRegistry(),
		opts:     []structure.Option{structure.WithLogger(logger)},
	}

	switch mode {
	case "dump":
		return env.runDump()
	case "verify":
		return env.runVerify()
	case "add":
		return env.runAdd()
	case "remove":
		return env.runRemove()
	case "pack":
		return runPack()
	case "unpack":
		return runUnpack()
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func validateFlags() error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if dataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	switch mode {
	case "dump":
		if resourceID == "" {
			return fmt.Errorf("dump mode requires -resource")
		}
	case "verify":
	case "add":
		if resourceID == "" || kindName == "" {
			return fmt.Errorf("add mode requires -resource and -kind")
		}
	case "remove":
		if resourceID == "" || offsetArg == "" {
			return fmt.Errorf("remove mode requires -resource and -offset")
		}
	case "pack", "unpack":
		if resourceID == "" || outputPath == "" {
			return fmt.Errorf("%s mode requires -resource and -output", mode)
		}
	default:
		return fmt.Errorf("mode must be one of dump, verify, add, remove, pack, unpack")
	}

	if offsetArg != "" {
		if _, err := parseOffset(offsetArg); err != nil {
			return err
		}
	}
	return nil
}

func parseOffset(s string) (int, error) {
	off, err := strconv.ParseInt(s, 0, 64)
	if err != nil || off < 0 {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return int(off), nil
}
