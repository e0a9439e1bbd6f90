package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Help lists the keyboard commands.
const Help = "[enter/l] start or stop listening   [s] save transcript   [q] quit"

// ErrQuit is returned by ReadCommands when the user asks to quit.
var ErrQuit = errors.New("console: quit requested")

// Commands is the set of actions a user can trigger from the terminal.
type Commands interface {
	Toggle()
	Save()
}

// ReadCommands reads one command per line from r until EOF or a quit
// command. Unknown input is ignored.
func ReadCommands(r io.Reader, cmds Commands) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "", "l":
			cmds.Toggle()
		case "s":
			cmds.Save()
		case "q", "quit", "exit":
			return ErrQuit
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("console: reading commands: %w", err)
	}
	return nil
}
