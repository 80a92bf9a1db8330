package shell

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/domino14/eggdrop/config"
	"github.com/domino14/eggdrop/eggdrop"
	"github.com/domino14/eggdrop/session"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("eggdrop_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// Exec runs any shell command and returns what it would have printed.
func Exec(L *lua.LState) int {
	line := L.ToString(1)
	sc := getShell(L)
	r, err := sc.commandSwitch(line)
	if err != nil {
		log.Err(err).Str("line", line).Msg("error-executing-command")
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 1
	}
	if r == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(r.message))
	// return number of results pushed to stack.
	return 1
}

// Solve returns the worst-case drop count and the first floor to drop from.
func Solve(L *lua.LState) int {
	eggs := L.CheckInt(1)
	floors := L.CheckInt(2)
	sc := getShell(L)
	if err := sc.config.CheckProblem(eggs, floors); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	sol, err := sc.solver.Solve(eggdrop.State{Eggs: eggs, Untested: floors})
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(sol.Value))
	L.Push(lua.LNumber(sol.Action))
	return 2
}

// Next returns the floor to drop from in the current session, or nil once
// the session is done.
func Next(L *lua.LState) int {
	sc := getShell(L)
	if sc.curSession == nil {
		L.RaiseError("%s", errNoSession.Error())
		return 0
	}
	if sc.curSession.Done() {
		L.Push(lua.LNil)
		return 1
	}
	_, floor, err := sc.curSession.Recommend()
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(floor))
	return 1
}

// Critical returns the critical floor of a finished session, and whether
// eggs break anywhere in the building.
func Critical(L *lua.LState) int {
	sc := getShell(L)
	if sc.curSession == nil {
		L.RaiseError("%s", errNoSession.Error())
		return 0
	}
	floor, breaks, err := sc.curSession.CriticalFloor()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(floor))
	L.Push(lua.LBool(breaks))
	return 2
}

func (sc *ShellController) scriptPath(p string) string {
	if filepath.IsAbs(p) || strings.HasPrefix(p, ".") {
		return p
	}
	return filepath.Join(sc.config.GetString(config.ConfigScriptPath), p)
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}

	filepath := sc.scriptPath(cmd.args[0])

	L := lua.NewState()
	defer L.Close()

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("eggdrop_shell", lsc)
	L.SetGlobal("eggdrop_exec", L.NewFunction(Exec))
	L.SetGlobal("eggdrop_solve", L.NewFunction(Solve))
	L.SetGlobal("eggdrop_next", L.NewFunction(Next))
	L.SetGlobal("eggdrop_critical", L.NewFunction(Critical))

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return nil, nil
}

// luaOracle asks a Lua script what happens on every drop. The script
// defines drop(floor), returning true or "break" when the egg breaks.
type luaOracle struct {
	L *lua.LState
}

func newLuaOracle(path string) (*luaOracle, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, err
	}
	if L.GetGlobal("drop").Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("%s does not define a drop(floor) function", path)
	}
	return &luaOracle{L: L}, nil
}

func (o *luaOracle) Drop(ctx context.Context, floor int) (session.Outcome, error) {
	o.L.SetContext(ctx)
	err := o.L.CallByParam(lua.P{
		Fn:      o.L.GetGlobal("drop"),
		NRet:    1,
		Protect: true,
	}, lua.LNumber(floor))
	if err != nil {
		return 0, err
	}
	ret := o.L.Get(-1)
	o.L.Pop(1)

	switch v := ret.(type) {
	case lua.LBool:
		if bool(v) {
			return session.Broke, nil
		}
		return session.Survived, nil
	case lua.LString:
		switch strings.ToLower(string(v)) {
		case "break", "breaks", "broke":
			return session.Broke, nil
		case "survive", "survives", "survived":
			return session.Survived, nil
		}
	}
	return 0, fmt.Errorf("drop(%d) returned %s; want a boolean, \"break\" or \"survive\"",
		floor, ret.String())
}

func (o *luaOracle) Close() {
	o.L.Close()
}
