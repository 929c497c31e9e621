// Command repack drives the scheduling engine against a small built-in demo
// kit set. Concrete kit implementations, cluster site flags, and a full
// configuration grammar are left to real drivers embedding internal/engine;
// this command exists to exercise internal/engine end to end, in the same
// "verb dispatch over a small flag set" shape as distri's
// cmd/distri/distri.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/siliconkit/repack"
	"github.com/siliconkit/repack/internal/engine"
	"github.com/siliconkit/repack/internal/env"
	"github.com/siliconkit/repack/internal/examplekit"
	"github.com/siliconkit/repack/internal/executor"
	"github.com/siliconkit/repack/internal/kit"
	"github.com/siliconkit/repack/internal/oninterrupt"
	"github.com/siliconkit/repack/internal/request"
	"github.com/siliconkit/repack/internal/state"
	internaltrace "github.com/siliconkit/repack/internal/trace"
)

var (
	debug      = flag.Bool("debug", false, "format error messages with additional detail")
	ctracefile = flag.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
)

const helpText = `repack [-flags] <command> [-flags] <args>

Commands:
	run      - run the built-in demo kit graph (KitC <- KitB <- KitA)
	version  - print build version information
`

func funcmain() error {
	flag.Parse()

	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return err
		}
		internaltrace.Sink(f)
		repack.RegisterAtExit(f.Close)
	}

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"run":     {cmdRun},
		"version": {cmdVersion},
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, helpText)
		os.Exit(2)
	}
	verb, rest := args[0], args[1:]

	ctx, canc := repack.InterruptibleContext()
	defer canc()

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprint(os.Stderr, helpText)
		os.Exit(2)
	}
	if err := v.fn(ctx, rest); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return repack.RunAtExit()
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	outputRoot := fs.String("output_root", os.TempDir()+"/repack-demo", "output root directory")
	statusFile := fs.String("status_file", filepath.Join(env.StatusDir, "repack_status.csv"), "path to the status CSV")
	workers := fs.Int("workers", 2, "local executor worker count")
	pvts := fs.String("pvts", "ss_100c,ff_0c", "comma-separated PVT identifiers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kitC := examplekit.New("KitC")
	kitB := examplekit.New("KitB", "KitC")
	kitA := examplekit.New("KitA", "KitB")
	kits := []kit.Kit{kitA, kitB, kitC}

	req := request.New("demo_lib", strings.Split(*pvts, ","), nil, nil, *outputRoot, nil)

	sm := state.New(*statusFile)
	exec := executor.NewLocal(*workers)
	defer exec.Shutdown()

	e := engine.New(kits, sm, exec)
	e.CleanHook = func() {
		log.Printf("cleaning %s for a full run", *outputRoot)
		os.RemoveAll(*outputRoot)
	}

	oninterrupt.Register("report-running-targets", func() {
		log.Printf("interrupted: targets left RUNNING will be retried on the next invocation")
	})

	log.Printf("starting repack run for %s", req.LibraryName())
	if err := e.Run(req); err != nil {
		return err
	}
	log.Printf("run complete")
	return nil
}

func cmdVersion(ctx context.Context, args []string) error {
	fmt.Println(Version())
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
