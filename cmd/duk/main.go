// Command duk is the CLI host for the engine package: point it at a
// literal-script fixture (see internal/compiler's Fixture format — this
// repo has no source-text parser, so a fixture is a JSON
// transliteration of an assembler call chain) and it runs the fixture's
// top-level program template to completion, printing its return value.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wippyai/ecmacore/engine"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/internal/compiler"
	"github.com/wippyai/ecmacore/value"
)

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to a literal-script fixture (JSON)")
		verbose     = flag.Bool("verbose", false, "Enable verbose engine logging")
		interactive = flag.Bool("i", false, "Interactive mode: step the bytecode executor one resume at a time")
	)
	flag.Parse()

	if *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: duk -script <file.json>")
		fmt.Fprintln(os.Stderr, "       duk -script <file.json> -i  (interactive stepping mode)")
		os.Exit(1)
	}

	data, err := os.ReadFile(*scriptFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read file: %v\n", err)
		os.Exit(1)
	}

	tmpl, err := compiler.LoadFixture(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: assemble fixture: %v\n", err)
		os.Exit(1)
	}

	cfg := heap.DefaultConfig()
	cfg.Verbose = *verbose
	rt := engine.New(cfg)

	if *interactive {
		if err := runInteractive(rt, tmpl, *scriptFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fn := heap.NewCompiledFunction(tmpl, nil)
	th := rt.NewThread()
	step := th.Resume(fn, value.Undefined(), nil)
	for !step.Done {
		fmt.Printf("(yielded: %s)\n", describeValue(step.Value))
		step = th.Resume(nil, value.Value{}, nil)
	}
	if step.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", step.Err)
		os.Exit(1)
	}
	fmt.Printf("=> %s\n", describeValue(step.Value))
}

func describeValue(v value.Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBoolean():
		return fmt.Sprintf("%v", v.AsBool())
	case v.IsNumber():
		return fmt.Sprintf("%v", v.AsNumber())
	case v.IsString():
		return fmt.Sprintf("%q", string(v.AsString().Bytes()))
	case v.IsObject():
		return "[object]"
	default:
		return value.TypeOf(v)
	}
}
