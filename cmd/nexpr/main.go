package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/agenthands/nexpr/pkg/compiler/diag"
	"github.com/agenthands/nexpr/pkg/engine"
	"github.com/agenthands/nexpr/pkg/vm"
)

const (
	historyFile = ".nexpr_history"
	prompt      = "nexpr> "
)

const usage = `usage: nexpr [options] command [args...]

commands:
  eval EXPR   evaluate one expression
  run FILE    evaluate every line of FILE ("-" reads stdin)
  repl        interactive prompt

options:
  -t N   token buffer capacity
  -c N   bytecode buffer capacity
  -s N   value stack depth
  -C N   compile cache entries (0 disables)
  -d     print the disassembled bytecode
  -v     debug logging
  -n     disable colour
  -h     show this help
`

type cli struct {
	eng    *engine.Engine
	disasm bool
	out    io.Writer
	errOut io.Writer

	red   func(a ...interface{}) string
	green func(a ...interface{}) string
	faint func(a ...interface{}) string
}

func main() {
	os.Exit(realMain(os.Args, os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg := engine.DefaultConfig()
	disasm := false

	opts, optind, err := getopt.Getopts(args, "t:c:s:C:dvnh")
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return 2
	}
	for _, o := range opts {
		switch o.Option {
		case 't', 'c', 's', 'C':
			n, err := strconv.Atoi(o.Value)
			if err != nil {
				fmt.Fprintf(stderr, "invalid -%c parameter %q\n", o.Option, o.Value)
				return 2
			}
			switch o.Option {
			case 't':
				cfg.TokenCapacity = n
			case 'c':
				cfg.CodeCapacity = n
			case 's':
				cfg.StackDepth = n
			case 'C':
				cfg.CacheSize = n
			}
		case 'd':
			disasm = true
		case 'v':
			if err := engine.SetLogLevel("debug"); err != nil {
				fmt.Fprintln(stderr, err)
				return 2
			}
		case 'n':
			color.NoColor = true
		case 'h':
			fmt.Fprint(stdout, usage)
			return 0
		}
	}
	args = args[optind:]
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	c := &cli{
		eng:    eng,
		disasm: disasm,
		out:    stdout,
		errOut: stderr,
		red:    color.New(color.FgRed).SprintFunc(),
		green:  color.New(color.FgGreen).SprintFunc(),
		faint:  color.New(color.Faint).SprintFunc(),
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "eval":
		if len(rest) == 0 {
			fmt.Fprintln(stderr, "eval: missing expression")
			return 2
		}
		if !c.eval(strings.Join(rest, " ")) {
			return 1
		}
		return 0
	case "run":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "run: expected one file")
			return 2
		}
		return c.runFile(rest[0])
	case "repl":
		return c.repl()
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fmt.Fprint(stderr, usage)
		return 2
	}
}

// eval compiles and runs src, printing the result or a caret diagnostic.
func (c *cli) eval(src string) bool {
	p, err := c.eng.Compile(src)
	if err != nil {
		c.report(src, err)
		return false
	}
	if c.disasm {
		ins, err := vm.Disassemble(p.Code)
		if err != nil {
			fmt.Fprintln(c.errOut, c.red(err.Error()))
			return false
		}
		for _, in := range ins {
			fmt.Fprintln(c.out, c.faint(in.String()))
		}
	}
	fmt.Fprintln(c.out, c.green(c.eng.Run(p).Format()))
	return true
}

func (c *cli) report(src string, err error) {
	fmt.Fprintln(c.errOut, c.red("error: "+err.Error()))
	var de *diag.Error
	if errors.As(err, &de) {
		fmt.Fprintln(c.errOut, de.Caret([]byte(src)))
	}
}

// runFile evaluates one expression per line. Blank lines and lines starting
// with '#' are skipped. Evaluation continues past failing lines.
func (c *cli) runFile(path string) int {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(c.errOut, c.red(err.Error()))
			return 1
		}
		defer f.Close()
		r = f
	}

	ret := 0
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !c.eval(line) {
			fmt.Fprintf(c.errOut, "%s:%d\n", path, lineNo)
			ret = 1
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintln(c.errOut, c.red(err.Error()))
		return 1
	}
	return ret
}

func (c *cli) repl() int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(c.out, "nexpr REPL. Ctrl+D exits, :quit exits, :config shows capacities.")
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			// io.EOF on Ctrl+D
			fmt.Fprintln(c.out)
			return 0
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":quit":
			return 0
		case ":config":
			fmt.Fprintln(c.out, c.eng.Config())
			continue
		}
		ln.AppendHistory(line)
		c.eval(line)
	}
}
