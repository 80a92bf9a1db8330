package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/eggdrop/eggdrop"
	"github.com/domino14/eggdrop/session"
	"github.com/domino14/eggdrop/stats"
)

const simConfidence = 95

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

var printer = message.NewPrinter(language.English)

// problemArgs reads `<eggs> <floors>` and checks them against the
// configured limits.
func (sc *ShellController) problemArgs(cmd *shellcmd) (int, int, error) {
	if len(cmd.args) != 2 {
		return 0, 0, fmt.Errorf("usage: %s <eggs> <floors>", cmd.cmd)
	}
	eggs, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad egg count: %w", err)
	}
	floors, err := strconv.Atoi(cmd.args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad floor count: %w", err)
	}
	if err := sc.config.CheckProblem(eggs, floors); err != nil {
		return 0, 0, err
	}
	return eggs, floors, nil
}

func (sc *ShellController) problemState(cmd *shellcmd) (eggdrop.State, error) {
	eggs, floors, err := sc.problemArgs(cmd)
	if err != nil {
		return eggdrop.State{}, err
	}
	offset, err := cmd.options.IntDefault("offset", 0)
	if err != nil {
		return eggdrop.State{}, err
	}
	return eggdrop.NewState(eggs, floors, offset)
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	st, err := sc.problemState(cmd)
	if err != nil {
		return nil, err
	}
	sol, err := sc.solver.Solve(st)
	if err != nil {
		return nil, err
	}
	if sol.Action == 0 {
		return msg("Minimum number of drops needed: 0 (no floors to test)"), nil
	}
	return msg(fmt.Sprintf("Minimum number of drops needed: %d\nFirst drop: floor %d",
		sol.Value, st.Floor(sol.Action))), nil
}

func (sc *ShellController) strategy(cmd *shellcmd) (*Response, error) {
	st, err := sc.problemState(cmd)
	if err != nil {
		return nil, err
	}
	steps, err := sc.solver.Strategy(st)
	if err != nil {
		return nil, err
	}
	if cmd.options.String("format") == "yaml" {
		out, err := yaml.Marshal(steps)
		if err != nil {
			return nil, err
		}
		return msg(string(out)), nil
	}
	return msg(strings.Join(eggdrop.StrategyLines(steps), "\n")), nil
}

func (sc *ShellController) tree(cmd *shellcmd) (*Response, error) {
	st, err := sc.problemState(cmd)
	if err != nil {
		return nil, err
	}
	tree, err := sc.solver.Tree(st)
	if err != nil {
		return nil, err
	}
	switch cmd.options.String("format") {
	case "", "text":
		return msg(strings.Join(tree.Lines(), "\n")), nil
	case "yaml":
		out, err := yaml.Marshal(tree)
		if err != nil {
			return nil, err
		}
		return msg(string(out)), nil
	case "json":
		out, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, err
		}
		return msg(string(out)), nil
	}
	return nil, errors.New("format must be one of text, yaml, json")
}

func (sc *ShellController) table(cmd *shellcmd) (*Response, error) {
	eggs, floors, err := sc.problemArgs(cmd)
	if err != nil {
		return nil, err
	}
	t, err := sc.solver.Table(eggs, floors)
	if err != nil {
		return nil, err
	}
	// the memo may hand back a bigger table than asked for.
	return msg(t.PrintableUpTo(eggs, floors)), nil
}

// check compares the table against the closed-form count.
func (sc *ShellController) check(cmd *shellcmd) (*Response, error) {
	eggs, floors, err := sc.problemArgs(cmd)
	if err != nil {
		return nil, err
	}
	closed, err := eggdrop.MinDrops(eggs, floors)
	if err != nil {
		return nil, err
	}
	sol, err := sc.solver.Solve(eggdrop.State{Eggs: eggs, Untested: floors})
	if err != nil {
		return nil, err
	}
	verdict := "OK"
	if closed != sol.Value {
		verdict = "MISMATCH"
	}
	return msg(printer.Sprintf(
		"table: %d drops; closed form: %d drops; %d drops cover up to %d floors with %d eggs: %s",
		sol.Value, closed, closed, eggdrop.MaxFloors(eggs, closed), eggs, verdict)), nil
}

func (sc *ShellController) start(cmd *shellcmd) (*Response, error) {
	eggs, floors, err := sc.problemArgs(cmd)
	if err != nil {
		return nil, err
	}
	s, err := session.New(sc.solver, eggs, floors)
	if err != nil {
		return nil, err
	}
	sol, err := sc.solver.Solve(s.State())
	if err != nil {
		return nil, err
	}
	sc.curSession = s
	sc.prevSession = nil
	if s.Done() {
		return msg("Nothing to test: the building has no floors."), nil
	}
	resp, err := sc.next(cmd)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Minimum number of drops needed: %d\n%s", sol.Value, resp.message)), nil
}

func (sc *ShellController) next(cmd *shellcmd) (*Response, error) {
	if sc.curSession == nil {
		return nil, errNoSession
	}
	if sc.curSession.Done() {
		return sc.finished()
	}
	_, floor, err := sc.curSession.Recommend()
	if err != nil {
		return nil, err
	}
	low, high := sc.curSession.State().Range()
	return msg(fmt.Sprintf("Step %d: drop egg from floor %d (%d eggs, floors %d to %d untested)\n"+
		"What happened to the egg? `break` or `survive`",
		sc.curSession.Step(), floor, sc.curSession.State().Eggs, low, high)), nil
}

func (sc *ShellController) finished() (*Response, error) {
	floor, breaks, err := sc.curSession.CriticalFloor()
	if err != nil {
		return nil, err
	}
	n := len(sc.curSession.History())
	if !breaks {
		return msg(fmt.Sprintf("Done after %d drops: eggs survive every floor of the building.", n)), nil
	}
	return msg(fmt.Sprintf("Done after %d drops: the critical floor is %d.", n, floor)), nil
}

func (sc *ShellController) observe(outcome session.Outcome) (*Response, error) {
	if sc.curSession == nil {
		return nil, errNoSession
	}
	next, err := sc.curSession.Observe(outcome)
	if err != nil {
		return nil, err
	}
	sc.prevSession = append(sc.prevSession, sc.curSession)
	sc.curSession = next
	last := next.History()[len(next.History())-1]
	resp, err := sc.next(nil)
	if err != nil {
		return nil, err
	}
	return msg(last.String() + "\n" + resp.message), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if len(sc.prevSession) == 0 {
		return nil, errors.New("nothing to undo")
	}
	sc.curSession = sc.prevSession[len(sc.prevSession)-1]
	sc.prevSession = sc.prevSession[:len(sc.prevSession)-1]
	return sc.next(cmd)
}

func (sc *ShellController) history(cmd *shellcmd) (*Response, error) {
	if sc.curSession == nil {
		return nil, errNoSession
	}
	h := sc.curSession.History()
	if len(h) == 0 {
		return msg("No drops yet."), nil
	}
	return msg(h.String()), nil
}

// simulate plays the optimal strategy against simulated buildings and
// reports how many drops it took.
func (sc *ShellController) simulate(cmd *shellcmd) (*Response, error) {
	eggs, floors, err := sc.problemArgs(cmd)
	if err != nil {
		return nil, err
	}
	sol, err := sc.solver.Solve(eggdrop.State{Eggs: eggs, Untested: floors})
	if err != nil {
		return nil, err
	}
	ctx := context.Background()

	if script := cmd.options.String("oracle"); script != "" {
		oracle, err := newLuaOracle(sc.scriptPath(script))
		if err != nil {
			return nil, err
		}
		defer oracle.Close()
		s, err := session.New(sc.solver, eggs, floors)
		if err != nil {
			return nil, err
		}
		done, err := s.Run(ctx, oracle)
		if err != nil {
			return nil, err
		}
		floor, breaks, err := done.CriticalFloor()
		if err != nil {
			return nil, err
		}
		out := done.History().String() + "\n"
		if breaks {
			out += fmt.Sprintf("critical floor: %d", floor)
		} else {
			out += "eggs never break"
		}
		return msg(out), nil
	}

	var criticals []int
	if cmd.options.String("random") != "" {
		n, err := cmd.options.Int("random")
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, errors.New("random needs a positive count")
		}
		criticals = make([]int, n)
		for i := range criticals {
			criticals[i] = frand.Intn(floors+1) + 1
		}
	} else {
		criticals = lo.RangeFrom(1, floors+1)
	}

	st := &stats.Statistic{}
	for _, c := range criticals {
		s, err := session.New(sc.solver, eggs, floors)
		if err != nil {
			return nil, err
		}
		done, err := s.Run(ctx, session.FixedOracle{Critical: c})
		if err != nil {
			return nil, err
		}
		if found, _, _ := done.CriticalFloor(); found != c {
			return nil, fmt.Errorf("simulation found floor %d, expected %d", found, c)
		}
		st.Push(float64(len(done.History())))
	}
	verdict := "within"
	if int(st.Max()) > sol.Value {
		verdict = "OVER"
	}
	return msg(printer.Sprintf("%d buildings simulated: %s\nworst case %d drops, %s the guaranteed %d",
		len(criticals), st.Summary(simConfidence), int(st.Max()), verdict, sol.Value)), nil
}

func (sc *ShellController) alias(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 || cmd.args[0] == "list" {
		if len(sc.aliases) == 0 {
			return msg("No aliases."), nil
		}
		keys := lo.Keys(sc.aliases)
		slices.Sort(keys)
		lines := lo.Map(keys, func(k string, _ int) string {
			return k + " = " + sc.aliases[k]
		})
		return msg(strings.Join(lines, "\n")), nil
	}
	switch cmd.args[0] {
	case "set":
		if len(cmd.args) < 3 {
			return nil, errors.New("usage: alias set <name> <command...>")
		}
		sc.aliases[cmd.args[1]] = strings.Join(cmd.args[2:], " ")
		return msg("alias " + cmd.args[1] + " set"), nil
	case "delete", "rm":
		if len(cmd.args) != 2 {
			return nil, errors.New("usage: alias delete <name>")
		}
		delete(sc.aliases, cmd.args[1])
		return msg("alias " + cmd.args[1] + " deleted"), nil
	}
	return nil, errors.New("alias subcommands: set, delete, list")
}
