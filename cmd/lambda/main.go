package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/eggdrop/bot"
	"github.com/domino14/eggdrop/config"
)

var cfg *config.Config
var nc *nats.Conn
var solverBot *bot.Bot

const (
	replyTimeout  = 3 * time.Second
	replyAttempts = 5
)

func HandleRequest(ctx context.Context, evt bot.LambdaEvent) (string, error) {
	logger := log.With().
		Str("id", evt.ID).
		Int("eggs", evt.Eggs).
		Int("floors", evt.Floors).
		Logger()

	if solverBot == nil {
		solverBot = bot.NewBot(cfg)
	}
	data, err := json.Marshal(&evt.Request)
	if err != nil {
		return "", err
	}
	out := solverBot.Handle(data)
	resp := &bot.Response{}
	if err := json.Unmarshal(out, resp); err != nil {
		return "", err
	}
	logger.Info().Int("drops", resp.Drops).Int("floor", resp.Floor).
		Str("error", resp.Error).Msg("solved")

	if evt.ReplyChannel != "" {
		if nc == nil {
			return "", errors.New("no NATS connection for reply channel " + evt.ReplyChannel)
		}
		logger.Info().Msg("solve-sending-via-nats")
		err = retry.Do(
			func() error {
				// Only the acknowledgement matters, not its contents.
				_, err := nc.Request(evt.ReplyChannel, out, replyTimeout)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(replyAttempts),
			retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
				logger.Err(err).Uint("n", n).
					Msg("did-not-receive-ack-try-again")
				return retry.BackOffDelay(n, err, config)
			}),
		)
		if err != nil {
			logger.Err(err).Msg("reply-failed")
		}
	}
	logger.Info().Msg("exiting-fn")
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	if resp.Action == 0 {
		return fmt.Sprintf("%d drops", resp.Drops), nil
	}
	return fmt.Sprintf("%d drops, first drop from floor %d", resp.Drops, resp.Floor), nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg = &config.Config{}
	if _, err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())
	cfg.AdjustRelativePaths(exPath)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	nc, err = nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}

	lambda.Start(HandleRequest)
}
