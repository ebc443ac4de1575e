// Package feed connects to exchange websocket feeds and normalizes their
// order book messages into sequenced updates for the book. All venue wire
// format knowledge lives here; the book itself is venue-agnostic.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"execution-sim/orderbook"
)

// Venue identifies a supported exchange.
type Venue string

const (
	OKX      Venue = "okx"
	Binance  Venue = "binance"
	Coinbase Venue = "coinbase"
)

var endpoints = map[Venue]string{
	OKX:      "wss://ws.okx.com:8443/ws/v5/public",
	Binance:  "wss://stream.binance.com:9443/ws",
	Coinbase: "wss://ws-feed.pro.coinbase.com",
}

// Endpoint returns the public websocket endpoint for a venue.
func (v Venue) Endpoint() (string, error) {
	ep, ok := endpoints[v]
	if !ok {
		return "", fmt.Errorf("unsupported venue %q", v)
	}
	return ep, nil
}

// SubscribeMessage builds the venue's order book subscription payload for
// one symbol (symbols use the BASE-QUOTE form; venue-specific casing and
// separators are handled here).
func (v Venue) SubscribeMessage(symbol string) ([]byte, error) {
	switch v {
	case OKX:
		return json.Marshal(map[string]any{
			"op": "subscribe",
			"args": []map[string]string{{
				"channel": "books",
				"instId":  symbol,
			}},
		})
	case Binance:
		stream := strings.ToLower(strings.ReplaceAll(symbol, "-", "")) + "@depth20@100ms"
		return json.Marshal(map[string]any{
			"method": "SUBSCRIBE",
			"params": []string{stream},
			"id":     1,
		})
	case Coinbase:
		return json.Marshal(map[string]any{
			"type":        "subscribe",
			"product_ids": []string{symbol},
			"channels":    []string{"level2"},
		})
	default:
		return nil, fmt.Errorf("unsupported venue %q", v)
	}
}

// Parse converts one raw message into a normalized update. ok is false for
// messages that are not book updates (acks, heartbeats, subscriptions).
// Updates from venues that do not carry a sequence number are returned with
// SequenceID 0; the client assigns a local monotonic sequence before
// delivery.
func (v Venue) Parse(raw []byte) (u orderbook.Update, ok bool, err error) {
	switch v {
	case OKX:
		return parseOKX(raw)
	case Binance:
		return parseBinance(raw)
	case Coinbase:
		return parseCoinbase(raw)
	default:
		return orderbook.Update{}, false, fmt.Errorf("unsupported venue %q", v)
	}
}

type okxMessage struct {
	Arg struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data []struct {
		SeqID int64      `json:"seqId"`
		Bids  [][]string `json:"bids"`
		Asks  [][]string `json:"asks"`
	} `json:"data"`
}

func parseOKX(raw []byte) (orderbook.Update, bool, error) {
	var msg okxMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return orderbook.Update{}, false, fmt.Errorf("okx message: %w", err)
	}
	if msg.Arg.Channel != "books" || len(msg.Data) == 0 {
		return orderbook.Update{}, false, nil
	}
	data := msg.Data[0]
	bids, err := parseLevels(data.Bids)
	if err != nil {
		return orderbook.Update{}, false, fmt.Errorf("okx bids: %w", err)
	}
	asks, err := parseLevels(data.Asks)
	if err != nil {
		return orderbook.Update{}, false, fmt.Errorf("okx asks: %w", err)
	}
	return orderbook.Update{SequenceID: data.SeqID, Bids: bids, Asks: asks}, true, nil
}

type binanceMessage struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func parseBinance(raw []byte) (orderbook.Update, bool, error) {
	var msg binanceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return orderbook.Update{}, false, fmt.Errorf("binance message: %w", err)
	}
	if msg.LastUpdateID == 0 {
		return orderbook.Update{}, false, nil
	}
	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return orderbook.Update{}, false, fmt.Errorf("binance bids: %w", err)
	}
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return orderbook.Update{}, false, fmt.Errorf("binance asks: %w", err)
	}
	return orderbook.Update{SequenceID: msg.LastUpdateID, Bids: bids, Asks: asks}, true, nil
}

type coinbaseMessage struct {
	Type     string     `json:"type"`
	Sequence int64      `json:"sequence"`
	Bids     [][]string `json:"bids"`
	Asks     [][]string `json:"asks"`
	Changes  [][]string `json:"changes"`
}

func parseCoinbase(raw []byte) (orderbook.Update, bool, error) {
	var msg coinbaseMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return orderbook.Update{}, false, fmt.Errorf("coinbase message: %w", err)
	}
	u := orderbook.Update{SequenceID: msg.Sequence}
	switch msg.Type {
	case "snapshot":
		bids, err := parseLevels(msg.Bids)
		if err != nil {
			return orderbook.Update{}, false, fmt.Errorf("coinbase bids: %w", err)
		}
		asks, err := parseLevels(msg.Asks)
		if err != nil {
			return orderbook.Update{}, false, fmt.Errorf("coinbase asks: %w", err)
		}
		u.Bids, u.Asks = bids, asks
	case "l2update":
		for _, change := range msg.Changes {
			if len(change) != 3 {
				return orderbook.Update{}, false, fmt.Errorf("coinbase change %v: want [side, price, size]", change)
			}
			lv, err := parseLevel(change[1], change[2])
			if err != nil {
				return orderbook.Update{}, false, fmt.Errorf("coinbase change: %w", err)
			}
			switch change[0] {
			case "buy":
				u.Bids = append(u.Bids, lv)
			case "sell":
				u.Asks = append(u.Asks, lv)
			default:
				return orderbook.Update{}, false, fmt.Errorf("coinbase change side %q", change[0])
			}
		}
	default:
		return orderbook.Update{}, false, nil
	}
	return u, true, nil
}

// parseLevels decodes [["price","size"], ...] pairs. Extra columns (OKX
// appends order counts) are ignored. Prices go through decimal to avoid
// accumulating string->float conversion noise before the float64 book keys
// are produced.
func parseLevels(rows [][]string) ([]orderbook.Level, error) {
	levels := make([]orderbook.Level, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("level %v: want at least [price, size]", row)
		}
		lv, err := parseLevel(row[0], row[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, lv)
	}
	return levels, nil
}

func parseLevel(priceStr, volumeStr string) (orderbook.Level, error) {
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return orderbook.Level{}, fmt.Errorf("price %q: %w", priceStr, err)
	}
	volume, err := decimal.NewFromString(volumeStr)
	if err != nil {
		return orderbook.Level{}, fmt.Errorf("volume %q: %w", volumeStr, err)
	}
	return orderbook.Level{
		Price:  price.InexactFloat64(),
		Volume: volume.InexactFloat64(),
	}, nil
}
