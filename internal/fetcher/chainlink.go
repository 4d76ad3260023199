package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const aggregatorV3ABIJSON = `[
 {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"internalType":"uint80","name":"_roundId","type":"uint80"}],"name":"getRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}
]`

var aggregatorV3ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABIJSON))
	if err != nil {
		panic("failed to parse AggregatorV3 ABI: " + err.Error())
	}
	aggregatorV3ABI = parsed
}

// ChainlinkOptions parameterise the on-chain price feed fetcher.
type ChainlinkOptions struct {
	RPCURL  string
	Timeout time.Duration
	// Feeds maps a feed name such as "ETH-USD" to its aggregator address.
	Feeds map[string]string
}

// Chainlink reads Chainlink AggregatorV3 price feeds over Ethereum RPC.
// It returns the previous and latest rounds as two bars so QuoteFromHistory
// yields a round-over-round change.
type Chainlink struct {
	opts      ChainlinkOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewChainlink builds a Chainlink fetcher.
func NewChainlink(opts ChainlinkOptions, logger zerolog.Logger) *Chainlink {
	return &Chainlink{opts: opts, logger: logger.With().Str("component", "chainlink_fetcher").Logger()}
}

type round struct {
	id        *big.Int
	answer    *big.Int
	updatedAt *big.Int
}

// FetchHistory resolves feed (the part after the "cl:" prefix) and reads its last two rounds.
// period is ignored; aggregators only expose round data.
func (c *Chainlink) FetchHistory(ctx context.Context, feed, period string) ([]Bar, error) {
	if c.opts.RPCURL == "" {
		return nil, errors.New("chainlink rpc url not configured")
	}
	address, ok := c.lookup(feed)
	if !ok {
		return nil, fmt.Errorf("chainlink feed %q not configured", feed)
	}

	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	addr := common.HexToAddress(address)

	decOut, err := c.call(ctx, client, addr, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := decOut[0].(uint8)
	if !ok {
		return nil, errors.New("failed to decode decimals output")
	}

	latest, err := c.readRound(ctx, client, addr, "latestRoundData")
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, 2)
	if latest.id.Sign() > 0 {
		prevID := new(big.Int).Sub(latest.id, big.NewInt(1))
		prev, err := c.readRound(ctx, client, addr, "getRoundData", prevID)
		if err != nil {
			// first round of a phase has no predecessor
			c.logger.Debug().Err(err).Str("feed", feed).Msg("previous round unavailable")
		} else if prev.answer.Sign() > 0 {
			bars = append(bars, roundBar(prev, decimals))
		}
	}
	if latest.answer.Sign() <= 0 {
		return nil, fmt.Errorf("%w: feed %s returned non-positive answer", ErrNoData, feed)
	}
	bars = append(bars, roundBar(latest, decimals))
	return bars, nil
}

func (c *Chainlink) lookup(feed string) (string, bool) {
	for name, address := range c.opts.Feeds {
		if strings.EqualFold(name, feed) && address != "" {
			return address, true
		}
	}
	return "", false
}

func (c *Chainlink) call(ctx context.Context, client *ethclient.Client, addr common.Address, method string, args ...interface{}) ([]interface{}, error) {
	payload, err := aggregatorV3ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	outputs, err := aggregatorV3ABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("unexpected %s response", method)
	}
	return outputs, nil
}

func (c *Chainlink) readRound(ctx context.Context, client *ethclient.Client, addr common.Address, method string, args ...interface{}) (round, error) {
	outputs, err := c.call(ctx, client, addr, method, args...)
	if err != nil {
		return round{}, err
	}
	if len(outputs) != 5 {
		return round{}, fmt.Errorf("unexpected %s response", method)
	}
	id, ok1 := outputs[0].(*big.Int)
	answer, ok2 := outputs[1].(*big.Int)
	updatedAt, ok3 := outputs[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return round{}, fmt.Errorf("failed to decode %s output", method)
	}
	return round{id: id, answer: answer, updatedAt: updatedAt}, nil
}

func roundBar(r round, decimals uint8) Bar {
	price := decimal.NewFromBigInt(r.answer, -int32(decimals))
	return Bar{
		Time:  time.Unix(r.updatedAt.Int64(), 0).UTC(),
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
	}
}

func (c *Chainlink) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

var _ HistoryFetcher = (*Chainlink)(nil)
