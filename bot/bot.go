// Package bot answers egg drop problems over NATS request/reply.
package bot

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/eggdrop/cache"
	"github.com/domino14/eggdrop/config"
	"github.com/domino14/eggdrop/eggdrop"
)

// Request asks for the answer to one problem. Offset shifts the reported
// floors; it does not change the drop count.
type Request struct {
	ID       string `json:"id,omitempty"`
	Eggs     int    `json:"eggs"`
	Floors   int    `json:"floors"`
	Offset   int    `json:"offset,omitempty"`
	Strategy bool   `json:"strategy,omitempty"`
}

// Response answers a Request. DropsOnly marks answers to problems past the
// configured limits: only Drops is filled in, since no table was built to
// take a first floor from.
type Response struct {
	ID        string   `json:"id,omitempty"`
	Drops     int      `json:"drops"`
	Action    int      `json:"action"`
	Floor     int      `json:"floor"`
	Strategy  []string `json:"strategy,omitempty"`
	DropsOnly bool     `json:"drops_only,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// LambdaEvent is a Request delivered through AWS Lambda. The answer is also
// published to ReplyChannel when one is given.
type LambdaEvent struct {
	Request
	ReplyChannel string `json:"reply_channel,omitempty"`
}

type Bot struct {
	config *config.Config
	memo   *cache.Cache
	solver *eggdrop.Solver
}

func NewBot(cfg *config.Config) *Bot {
	memo := cache.New()
	memo.SetLimit(cfg.GetInt(config.ConfigMemoTables))
	return &Bot{
		config: cfg,
		memo:   memo,
		solver: eggdrop.NewSolverFromConfig(cfg, memo),
	}
}

func errorResponse(id, message string, err error) *Response {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &Response{ID: id, Error: msg}
}

func (bot *Bot) Deserialize(data []byte) (*Request, eggdrop.State, error) {
	req := &Request{}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, eggdrop.State{}, err
	}
	st, err := eggdrop.NewState(req.Eggs, req.Floors, req.Offset)
	if err != nil {
		return req, eggdrop.State{}, err
	}
	return req, st, nil
}

// Solve answers a single request. Failures are reported inside the
// response, never as a Go error, so the caller always has something to send.
func (bot *Bot) Solve(req *Request, st eggdrop.State) *Response {
	if err := bot.config.CheckProblem(st.Eggs, st.Untested); err != nil {
		return bot.countDrops(req, st, err)
	}
	sol, err := bot.solver.Solve(st)
	if err != nil {
		return errorResponse(req.ID, "could not solve", err)
	}
	resp := &Response{ID: req.ID, Drops: sol.Value, Action: sol.Action}
	if sol.Action > 0 {
		resp.Floor = st.Floor(sol.Action)
	}
	if req.Strategy {
		steps, err := bot.solver.Strategy(st)
		if err != nil {
			return errorResponse(req.ID, "could not build strategy", err)
		}
		resp.Strategy = eggdrop.StrategyLines(steps)
	}
	return resp
}

// countDrops answers a problem too big to tabulate with the closed-form
// drop count alone.
func (bot *Bot) countDrops(req *Request, st eggdrop.State, reason error) *Response {
	drops, err := eggdrop.MinDrops(st.Eggs, st.Untested)
	if err != nil {
		return errorResponse(req.ID, "could not solve", err)
	}
	log.Debug().Str("id", req.ID).AnErr("reason", reason).Int("drops", drops).
		Msg("drops-only")
	return &Response{ID: req.ID, Drops: drops, DropsOnly: true}
}

func (bot *Bot) handle(data []byte) *Response {
	req, st, err := bot.Deserialize(data)
	if err != nil {
		id := ""
		if req != nil {
			id = req.ID
		}
		return errorResponse(id, "bad request", err)
	}
	log.Debug().Str("id", req.ID).Int("eggs", st.Eggs).Int("floors", st.Untested).
		Int("offset", st.Offset).Msg("solving")
	return bot.Solve(req, st)
}

// Handle decodes a request, solves it, and encodes the response.
func (bot *Bot) Handle(data []byte) []byte {
	resp := bot.handle(data)
	out, err := json.Marshal(resp)
	if err != nil {
		// Should never happen; a Response always marshals.
		return []byte(err.Error())
	}
	return out
}

func Main(channel string, bot *Bot) {
	nc, err := nats.Connect(bot.config.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().Err(err).Msg("nats-connect")
	}
	_, err = nc.Subscribe(channel, func(m *nats.Msg) {
		log.Info().Msgf("RECV: %d bytes", len(m.Data))
		if err := m.Respond(bot.Handle(m.Data)); err != nil {
			log.Err(err).Msg("respond")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("channel", channel).Msg("nats-subscribe")
	}
	nc.Flush()

	if err := nc.LastError(); err != nil {
		log.Fatal().Err(err).Msg("nats")
	}

	log.Info().Msgf("Listening on [%s]", channel)

	runtime.Goexit()
}
