package shell

import (
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"solve":    {Options: []string{"-offset"}},
	"strategy": {Options: []string{"-offset", "-format"}},
	"tree":     {Options: []string{"-offset", "-format"}},
	"simulate": {Options: []string{"-random", "-oracle"}},
	"sim":      {Options: []string{"-random", "-oracle"}},
	"alias":    {Args: []string{"set", "delete", "list", "rm"}},
	"help":     {Args: []string{"solve", "strategy", "tree", "start", "simulate", "script"}},
}

var commandNames = []string{
	"help", "alias", "solve", "strategy", "tree", "table", "check", "start",
	"next", "break", "survive", "undo", "history", "simulate", "script", "exit",
}

var formatValues = map[string][]string{
	"strategy": {"text", "yaml"},
	"tree":     {"text", "yaml", "json"},
}

// Do implements the readline.AutoComplete interface.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		// unbalanced quotes while typing
		fields = strings.Fields(text)
	}
	// an empty prefix means the cursor sits after a space.
	prefix := ""
	if len(text) > 0 && text[len(text)-1] != ' ' && len(fields) > 0 {
		prefix = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}

	var candidates []string
	if len(fields) == 0 {
		candidates = c.commands()
	} else {
		candidates = c.arguments(c.resolve(fields[0]), fields[len(fields)-1], prefix)
	}

	var matches [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, prefix) {
			matches = append(matches, []rune(cand[len(prefix):]))
		}
	}
	return matches, len(prefix)
}

func (c *ShellCompleter) commands() []string {
	return append(slices.Clone(commandNames), lo.Keys(c.sc.aliases)...)
}

// resolve maps an alias onto the command it runs.
func (c *ShellCompleter) resolve(name string) string {
	if expanded, ok := c.sc.aliases[name]; ok {
		if fields, err := shellquote.Split(expanded); err == nil && len(fields) > 0 {
			return fields[0]
		}
	}
	return name
}

// arguments lists what may follow previous, the last complete word.
func (c *ShellCompleter) arguments(cmd, previous, prefix string) []string {
	if previous == "-format" {
		return formatValues[cmd]
	}
	meta := commandMetadata[cmd]
	if strings.HasPrefix(prefix, "-") || len(meta.Args) == 0 {
		return meta.Options
	}
	return meta.Args
}
