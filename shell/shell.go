package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/eggdrop/cache"
	"github.com/domino14/eggdrop/config"
	"github.com/domino14/eggdrop/eggdrop"
	"github.com/domino14/eggdrop/session"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errNoSession         = errors.New("please start a session first with the `start` command")
	errExit              = errors.New("exiting")
)

type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config

	execPath   string
	gitVersion string

	// memo lives as long as the shell; every command shares its tables.
	memo   *cache.Cache
	solver *eggdrop.Solver

	// the interactive session, and the ones before it so `undo` can step
	// back.
	curSession  *session.Session
	prevSession []*session.Session

	aliases map[string]string
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	sc := newController(cfg, os.Stderr)
	sc.execPath = execPath
	sc.gitVersion = gitVersion

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31meggdrop>\033[0m ",
		HistoryFile:     cfg.GetString(config.ConfigHistoryFile),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

// newController sets up everything but the terminal.
func newController(cfg *config.Config, out io.Writer) *ShellController {
	memo := cache.New()
	memo.SetLimit(cfg.GetInt(config.ConfigMemoTables))
	return &ShellController{
		out:     out,
		config:  cfg,
		memo:    memo,
		solver:  eggdrop.NewSolverFromConfig(cfg, memo),
		aliases: map[string]string{},
	}
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a line into the command, its positional arguments and
// its `-key value` options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}

	for idx := 1; idx < len(fields); idx++ {
		f := fields[idx]
		// Negative numbers are arguments, not options.
		if strings.HasPrefix(f, "-") && len(f) > 1 && (f[1] < '0' || f[1] > '9') {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := f[1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, f)
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) expandAlias(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return line
	}
	if expanded, ok := sc.aliases[fields[0]]; ok {
		return strings.TrimSpace(expanded + " " + strings.Join(fields[1:], " "))
	}
	return line
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "help":
		return sc.help(cmd)
	case "alias":
		return sc.alias(cmd)
	case "solve":
		return sc.solve(cmd)
	case "strategy":
		return sc.strategy(cmd)
	case "tree":
		return sc.tree(cmd)
	case "table":
		return sc.table(cmd)
	case "check":
		return sc.check(cmd)
	case "start":
		return sc.start(cmd)
	case "next":
		return sc.next(cmd)
	case "break", "broke", "b":
		return sc.observe(session.Broke)
	case "survive", "survived", "s":
		return sc.observe(session.Survived)
	case "undo":
		return sc.undo(cmd)
	case "history":
		return sc.history(cmd)
	case "simulate", "sim":
		return sc.simulate(cmd)
	case "script":
		return sc.script(cmd)
	case "exit", "bye":
		return nil, errExit
	}
	return nil, fmt.Errorf("unrecognized command: %s", cmd.cmd)
}

// commandSwitch runs one line. It returns errExit when the shell should quit.
func (sc *ShellController) commandSwitch(line string) (*Response, error) {
	cmd, err := extractFields(sc.expandAlias(line))
	if err != nil {
		return nil, err
	}
	return sc.dispatch(cmd)
}

func (sc *ShellController) handle(line string, sig chan os.Signal) bool {
	resp, err := sc.commandSwitch(line)
	switch {
	case errors.Is(err, errExit):
		sig <- syscall.SIGINT
		return false
	case errors.Is(err, errNoData):
	case err != nil:
		sc.showError(err)
	case resp != nil && resp.message != "":
		sc.showMessage(resp.message)
	}
	return true
}

// Execute runs a single command line, as given on the command line of the
// binary.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	sc.handle(line, sig)
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if !sc.handle(line, sig) {
			break
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

func (sc *ShellController) Cleanup() {
	log.Debug().Int("cached-tables", sc.memo.Len()).Msg("cleaning-up")
	sc.memo.Clear()
}
