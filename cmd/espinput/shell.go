package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/yourusername/espinput-cli/internal/logging"
	"github.com/yourusername/espinput-cli/internal/output"
	"github.com/yourusername/espinput-cli/internal/reconcile"
	"github.com/yourusername/espinput-cli/internal/state"
	"golang.org/x/term"
)

const shellHelp = `Commands:
  ls                 reload and list all inputs
  add <message>      create an input
  edit <id> <msg>    replace the message of an input
  rm <id>            delete an input
  get <id>           fetch a single input from the device
  state              show the client state summary
  clear              clear status messages
  help               show this help
  quit               leave the shell`

// shellCmd runs an interactive session against one synchronizer
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session",
	Long: `Starts an interactive session that keeps the input list in memory.
Status messages appear as operations complete and expire after the
configured message TTL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}

		c := newClient(cfg)
		s := newSynchronizer(cfg, true)
		defer s.Close()

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		return runShell(cmd.Context(), s, c, os.Stdin, os.Stdout, interactive)
	},
}

// shellCommand is one parsed shell line
type shellCommand struct {
	name    string
	id      int
	message string
}

// parseShellLine parses a shell line. An empty line yields an empty name.
func parseShellLine(line string) (shellCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return shellCommand{}, nil
	}

	cmd := shellCommand{name: strings.ToLower(fields[0])}
	rest := fields[1:]

	switch cmd.name {
	case "ls", "state", "clear", "help", "quit", "exit":
		if len(rest) != 0 {
			return shellCommand{}, fmt.Errorf("%s takes no arguments", cmd.name)
		}
		if cmd.name == "exit" {
			cmd.name = "quit"
		}

	case "add":
		if len(rest) == 0 {
			return shellCommand{}, fmt.Errorf("usage: add <message>")
		}
		cmd.message = strings.Join(rest, " ")

	case "edit":
		if len(rest) < 2 {
			return shellCommand{}, fmt.Errorf("usage: edit <id> <message>")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return shellCommand{}, err
		}
		cmd.id = id
		cmd.message = strings.Join(rest[1:], " ")

	case "rm", "get":
		if len(rest) != 1 {
			return shellCommand{}, fmt.Errorf("usage: %s <id>", cmd.name)
		}
		id, err := parseID(rest[0])
		if err != nil {
			return shellCommand{}, err
		}
		cmd.id = id

	default:
		return shellCommand{}, fmt.Errorf("unknown command: %s (try help)", cmd.name)
	}

	return cmd, nil
}

// lockedWriter serializes writes from the shell loop and store listeners
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runShell reads commands from in until quit or EOF. The status line is
// re-rendered from the store whenever it changes.
func runShell(ctx context.Context, s *reconcile.Synchronizer, transport reconcile.Transport, in io.Reader, out io.Writer, interactive bool) error {
	w := &lockedWriter{w: out}
	width := output.TerminalWidth()

	var lastStatus string
	unsubscribe := s.Store().Subscribe(func(cs state.ClientState) {
		line := output.FormatStatus(cs)
		if line == lastStatus {
			return
		}
		lastStatus = line
		if line != "" {
			fmt.Fprintln(w, line)
		}
	})
	defer unsubscribe()

	store := s.Store()
	logging.Info().
		Bool("interactive", interactive).
		Int("subscribers", store.SubscriberCount()).
		Msg("shell started")

	<-s.LoadAll(ctx)
	output.PrintItems(w, s.State().Items, width)

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(w, "espinput> ")
		}
		if !scanner.Scan() {
			break
		}

		cmd, err := parseShellLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(w, "Error:", err)
			continue
		}

		switch cmd.name {
		case "":
			continue
		case "quit":
			logging.Info().Msg("shell finished")
			return nil
		case "help":
			fmt.Fprintln(w, shellHelp)
			continue
		case "clear":
			s.ClearMessages()
			continue
		case "state":
			printSummary(w, store)
			continue
		case "get":
			rec, err := transport.Get(ctx, cmd.id)
			if err != nil {
				fmt.Fprintln(w, "Error:", err)
				continue
			}
			output.PrintRecordDetail(w, rec)
			continue
		case "ls":
			<-s.LoadAll(ctx)
		case "add":
			<-s.CreateRecord(ctx, cmd.message)
		case "edit":
			if !knownID(w, store, cmd.id) {
				continue
			}
			<-s.UpdateRecord(ctx, cmd.id, cmd.message)
		case "rm":
			if !knownID(w, store, cmd.id) {
				continue
			}
			<-s.DeleteRecord(ctx, cmd.id)
		}

		logging.Debug().Str("cmd", cmd.name).Uint64("version", store.Version()).Msg("shell command done")
		output.PrintItems(w, s.State().Items, width)
		if cmd.name == "ls" {
			fmt.Fprintf(w, "Total: %d\n", store.Len())
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// knownID reports whether id is in the local list, printing a hint when not.
// Edits and deletes only target inputs the session has seen.
func knownID(w io.Writer, store *state.Store, id int) bool {
	if _, ok := store.FindRecord(id); ok {
		return true
	}

	ids := store.IDs()
	known := make([]string, len(ids))
	for i, v := range ids {
		known[i] = strconv.Itoa(v)
	}
	if len(known) == 0 {
		fmt.Fprintf(w, "Error: no input with id %d (list is empty, try ls)\n", id)
	} else {
		fmt.Fprintf(w, "Error: no input with id %d (known: %s)\n", id, strings.Join(known, ", "))
	}
	return false
}
