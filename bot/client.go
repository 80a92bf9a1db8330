package bot

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 10 * time.Second

type Client struct {
	nc      *nats.Conn
	channel string
}

func NewClient(nc *nats.Conn, channel string) *Client {
	return &Client{nc: nc, channel: channel}
}

func MakeRequest(eggs, floors, offset int, strategy bool) ([]byte, error) {
	return json.Marshal(&Request{
		Eggs:     eggs,
		Floors:   floors,
		Offset:   offset,
		Strategy: strategy,
	})
}

// RequestSolve sends a problem to the bot and waits for its answer.
func (c *Client) RequestSolve(eggs, floors, offset int, strategy bool) (*Response, error) {
	data, err := MakeRequest(eggs, floors, offset, strategy)
	if err != nil {
		return nil, err
	}
	res, err := c.nc.Request(c.channel, data, requestTimeout)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Msgf("%v for request", c.nc.LastError())
		}
		log.Error().Msgf("%v for request", err)
		return nil, err
	}
	log.Debug().Msgf("res: %v", string(res.Data))

	resp := &Response{}
	if err := json.Unmarshal(res.Data, resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return resp, errors.New("Bot returned: " + resp.Error)
	}
	return resp, nil
}
