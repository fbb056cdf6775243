package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

// print writes v as indented JSON when --format=json, otherwise runs text.
func (c *cli) print(v any, text func()) error {
	switch format := c.v.GetString(keyFormat); format {
	case "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		text()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (c *cli) printCall(resp *auctionapi.Response) {
	for _, attr := range resp.Attributes {
		fmt.Fprintf(c.out, "%s: %s\n", attr.Key, attr.Value)
	}
	for _, transfer := range resp.Transfers {
		fmt.Fprintf(c.out, "transfer: %d%s -> %s\n", transfer.Coin.Amount, transfer.Coin.Denom, transfer.To)
	}
}

func (c *cli) printValue(value *auctionapi.ValueResponse) {
	fmt.Fprintf(c.out, "open: %t\n", value.Open)
	fmt.Fprintf(c.out, "token: %s\n", value.Token)
	fmt.Fprintf(c.out, "owner: %s\n", value.Owner)
	fmt.Fprintf(c.out, "part: %s\n", value.Part)
	fmt.Fprintf(c.out, "highest bid: %d by %s\n", value.HighestBid.Amount, value.HighestBid.Addr)
	fmt.Fprintf(c.out, "bids: %d\n", len(value.Bids))
	for _, bid := range value.Bids {
		fmt.Fprintf(c.out, "  %s\t%d\n", bid.Addr, bid.Amount)
	}
}

// readJSONInput returns the contents of input when it names a readable file,
// and input itself otherwise.
func readJSONInput(input string) ([]byte, error) {
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	if !json.Valid([]byte(input)) {
		return nil, fmt.Errorf("%q is neither a readable file nor valid JSON", input)
	}
	return []byte(input), nil
}

var coinPattern = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]*)$`)

// parseCoins parses a comma separated list such as "10atom,5uosmo".
func parseCoins(s string) ([]core.Coin, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var coins []core.Coin
	for _, part := range strings.Split(s, ",") {
		m := coinPattern.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, fmt.Errorf("invalid coin %q, expected <amount><denom>", part)
		}
		amount, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in %q: %w", part, err)
		}
		coins = append(coins, core.Coin{Denom: m[2], Amount: amount})
	}
	return coins, nil
}

func formatCoins(coins []core.Coin) string {
	if len(coins) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(coins))
	for _, coin := range coins {
		parts = append(parts, strconv.FormatUint(coin.Amount, 10)+coin.Denom)
	}
	return strings.Join(parts, ",")
}
