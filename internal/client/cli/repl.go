package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printFn and printlnFn are test seams for user-facing output.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Upload(ctx context.Context, path string) error
	Cancel(id string) error
	CancelAll() error
	Active() error
	Tier(ctx context.Context, name string) error
	Usage(ctx context.Context) error
}

const helpText = `Available commands:
  upload <path>   upload a file and get a share link
  cancel <id>     cancel a running upload
  cancelall       cancel all running uploads
  active          list running uploads
  tier [name]     show plans, or switch to free|pro|business
  usage           show uploads this month
  exit            leave the program`

// runREPL reads commands line by line and dispatches them to a. The loop
// exits on scanner EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printFn(fmt.Sprintf("qs %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "upload", "up":
			if rest == "" {
				printlnFn("Usage: upload <path>")
				continue
			}
			_ = a.Upload(ctx, unquote(rest))

		case "cancel":
			if rest == "" {
				printlnFn("Usage: cancel <id>")
				continue
			}
			_ = a.Cancel(rest)

		case "cancelall":
			_ = a.CancelAll()

		case "active", "ls":
			_ = a.Active()

		case "tier":
			_ = a.Tier(ctx, rest)

		case "usage":
			_ = a.Usage(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
