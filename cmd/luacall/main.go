package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"

	"github.com/luacall/luacall/internal/bundle"
	"github.com/luacall/luacall/internal/config"
	"github.com/luacall/luacall/internal/manifest"
	"github.com/luacall/luacall/pkg/luacall"
)

const defaultManifest = "luacall.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "transform":
		handleTransform(os.Args[2:])
	case "load":
		handleLoad(os.Args[2:])
	case "bundle":
		handleBundle(os.Args[2:])
	case "push":
		handlePush(os.Args[2:])
	case "watch":
		handleWatch(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Println("luacall " + config.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: luacall <command> [options]

Commands:
  transform [-ns NS] [-compat] <file.lua|->   print transformed source
  load      [-f %[1]s] [-addr HOST:PORT]   load manifest scripts into Redis
  bundle    [-f %[1]s] -o <scripts.db>     transform into an offline bundle
  push      -b <scripts.db> [-addr HOST:PORT]  load a bundle into Redis
  watch     [-f %[1]s] [-addr HOST:PORT]   reload scripts on file changes
  version                                      print the version
`, defaultManifest)
}

// handleTransform rewrites one script and prints the result, no Redis
// involved. Reads stdin when the file argument is "-".
func handleTransform(args []string) {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	ns := fs.String("ns", "", "namespace for bare call targets")
	compat := fs.Bool("compat", false, "use the historical mangling behavior")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatalf("transform needs exactly one script file (or - for stdin)")
	}
	path := fs.Arg(0)

	var src []byte
	var err error
	if path == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		fatalf("reading script: %v", err)
	}

	mode := luacall.ModeLexical
	if *compat {
		mode = luacall.ModeCompat
	}
	s, err := luacall.Transform(*ns, scriptName(path), string(src), mode)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(s.Source)
}

func handleLoad(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	path := fs.String("f", defaultManifest, "manifest file")
	addr := fs.String("addr", "", "Redis address, overrides the manifest")
	fs.Parse(args)

	m, err := manifest.Load(*path)
	if err != nil {
		fatalf("%v", err)
	}
	n, err := loadManifest(m, *addr)
	if err != nil {
		fatalf("%v", err)
	}
	successf("loaded %d script(s)", n)
}

func handleBundle(args []string) {
	fs := flag.NewFlagSet("bundle", flag.ExitOnError)
	path := fs.String("f", defaultManifest, "manifest file")
	out := fs.String("o", "", "bundle file to write")
	fs.Parse(args)

	if *out == "" {
		fatalf("bundle needs -o <scripts.db>")
	}
	m, err := manifest.Load(*path)
	if err != nil {
		fatalf("%v", err)
	}
	lib, err := m.Library()
	if err != nil {
		fatalf("%v", err)
	}
	store, err := bundle.Open(*out)
	if err != nil {
		fatalf("%v", err)
	}
	defer store.Close()

	n, err := store.PutAll(lib)
	if err != nil {
		fatalf("%v", err)
	}
	successf("bundled %d script(s) into %s", n, *out)
}

func handlePush(args []string) {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	in := fs.String("b", "", "bundle file to push")
	addr := fs.String("addr", "", "Redis address")
	fs.Parse(args)

	if *in == "" {
		fatalf("push needs -b <scripts.db>")
	}
	store, err := bundle.Open(*in)
	if err != nil {
		fatalf("%v", err)
	}
	defer store.Close()

	host, err := connect(manifest.Redis{}, *addr)
	if err != nil {
		fatalf("%v", err)
	}
	ctx, cancel := opContext()
	defer cancel()

	n, err := store.Push(ctx, host)
	if err != nil {
		fatalf("%v", err)
	}
	successf("pushed %d script(s)", n)
}

// handleWatch keeps the manifest's scripts loaded: whenever the manifest or
// one of the script files changes, everything is transformed and loaded
// again. Load failures are reported and watching continues.
func handleWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	path := fs.String("f", defaultManifest, "manifest file")
	addr := fs.String("addr", "", "Redis address, overrides the manifest")
	fs.Parse(args)

	for {
		m, err := manifest.Load(*path)
		if err != nil {
			errorf("%v", err)
			// The manifest may be mid-save; retry after the next change.
			m = nil
		} else if n, err := loadManifest(m, *addr); err != nil {
			errorf("%v", err)
		} else {
			successf("loaded %d script(s)", n)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			fatalf("creating watcher: %v", err)
		}
		if err := watcher.Add(*path); err != nil {
			errorf("watching %s: %v", *path, err)
		}
		if m != nil {
			for _, s := range m.Scripts {
				if err := watcher.Add(m.ScriptPath(s)); err != nil {
					errorf("watching %s: %v", m.ScriptPath(s), err)
				}
			}
		}
		waitForChange(watcher)
		watcher.Close()
	}
}

func waitForChange(watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				// Editors save in bursts; let the dust settle.
				time.Sleep(100 * time.Millisecond)
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			errorf("watch error: %v", err)
		}
	}
}

func loadManifest(m *manifest.Manifest, addrOverride string) (int, error) {
	lib, err := m.Library()
	if err != nil {
		return 0, err
	}
	host, err := connect(m.Redis, addrOverride)
	if err != nil {
		return 0, err
	}
	ctx, cancel := opContext()
	defer cancel()
	return lib.Load(ctx, host)
}

func connect(cfg manifest.Redis, addrOverride string) (luacall.Host, error) {
	addr := cfg.Addr
	if addrOverride != "" {
		addr = addrOverride
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return luacall.NewRedisHost(client), nil
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// scriptName derives a script name from its file path: base name, extension
// stripped.
func scriptName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

func errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, msg)
}

func successf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		msg = "\x1b[32m" + msg + "\x1b[0m"
	}
	fmt.Println(msg)
}

func fatalf(format string, args ...any) {
	errorf(format, args...)
	os.Exit(1)
}
