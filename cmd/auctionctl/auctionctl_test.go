package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/spf13/viper"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

func TestParseCoins(t *testing.T) {
	tests := []struct {
		input   string
		want    []core.Coin
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "10atom", want: []core.Coin{{Denom: "atom", Amount: 10}}},
		{input: "10atom, 5ibc/27A6", want: []core.Coin{{Denom: "atom", Amount: 10}, {Denom: "ibc/27A6", Amount: 5}}},
		{input: "atom", wantErr: true},
		{input: "-1atom", wantErr: true},
		{input: "99999999999999999999atom", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			coins, err := parseCoins(tt.input)
			if tt.wantErr {
				check.Error(t, err)
				return
			}
			assert.NoError(t, err)
			check.Equal(t, tt.want, coins)
		})
	}
}

func TestReadJSONInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msg.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"part":"0.1","token":"atom"}`), 0o600))

	data, err := readJSONInput(path)
	assert.NoError(t, err)
	check.Equal(t, `{"part":"0.1","token":"atom"}`, string(data))

	data, err = readJSONInput(`{"token":"atom"}`)
	assert.NoError(t, err)
	check.Equal(t, `{"token":"atom"}`, string(data))

	_, err = readJSONInput("missing.json")
	check.Error(t, err)
}

// fakeServer answers every connection with handler's response.
func fakeServer(t *testing.T, handler func(auctionapi.Request) auctionapi.Response) (string, <-chan auctionapi.Request) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	requests := make(chan auctionapi.Request, 8)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			data, err := io.ReadAll(conn)
			if err == nil {
				var req auctionapi.Request
				if json.Unmarshal(data, &req) == nil {
					requests <- req
					_ = json.NewEncoder(conn).Encode(handler(req))
				}
			}
			_ = conn.Close()
		}
	}()
	return listener.Addr().String(), requests
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(viper.New(), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBidCommand(t *testing.T) {
	address, requests := fakeServer(t, func(req auctionapi.Request) auctionapi.Response {
		return auctionapi.Response{
			Type:    req.Type,
			Success: true,
			Attributes: []core.Attribute{
				{Key: "action", Value: "bid"},
				{Key: "sender", Value: req.Sender},
				{Key: "sender_total", Value: "9"},
			},
		}
	})
	t.Setenv("AUCTIONCTL_SENDER", "auction1sender")

	out, err := runCLI(t, "--server", address, "bid", "auction1contract", "--funds", "10atom")
	assert.NoError(t, err)
	check.Equal(t, "action: bid\nsender: auction1sender\nsender_total: 9\n", out)

	req := <-requests
	check.Equal(t, auctionapi.TypeExecute, req.Type)
	check.Equal(t, "auction1contract", req.Contract)
	check.Equal(t, "auction1sender", req.Sender)
	check.NotNil(t, req.Execute.Bid)
	check.Equal(t, []core.Coin{{Denom: "atom", Amount: 10}}, req.Funds)
}

func TestRetractCommand_Receiver(t *testing.T) {
	address, requests := fakeServer(t, func(req auctionapi.Request) auctionapi.Response {
		return auctionapi.Response{Type: req.Type, Success: true}
	})

	_, err := runCLI(t, "--server", address, "--sender", "auction1sender", "retract", "auction1contract")
	assert.NoError(t, err)
	req := <-requests
	check.Nil(t, req.Execute.Retract.Receiver)

	_, err = runCLI(t, "--server", address, "--sender", "auction1sender", "retract", "auction1contract", "--receiver", "auction1friend")
	assert.NoError(t, err)
	req = <-requests
	assert.NotNil(t, req.Execute.Retract.Receiver)
	check.Equal(t, "auction1friend", *req.Execute.Retract.Receiver)
}

func TestQueryCommand_JSON(t *testing.T) {
	address, _ := fakeServer(t, func(req auctionapi.Request) auctionapi.Response {
		return auctionapi.Response{
			Type:    req.Type,
			Success: true,
			Value: &auctionapi.ValueResponse{
				Open:       false,
				Token:      "atom",
				Owner:      "auction1owner",
				Part:       "0.1",
				Bids:       []core.BidEntry{},
				HighestBid: core.BidEntry{Addr: "auction1winner", Amount: 18},
			},
		}
	})

	out, err := runCLI(t, "--server", address, "--format", "json", "query", "auction1contract")
	assert.NoError(t, err)

	var value auctionapi.ValueResponse
	assert.NoError(t, json.Unmarshal([]byte(out), &value))
	check.False(t, value.Open)
	check.Equal(t, core.BidEntry{Addr: "auction1winner", Amount: 18}, value.HighestBid)
}

func TestCommand_RequiresSender(t *testing.T) {
	_, err := runCLI(t, "close", "auction1contract")
	check.Error(t, err)
}
