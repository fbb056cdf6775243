package auctionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/core"
)

// serveOnce answers a single connection with handler's response.
func serveOnce(t *testing.T, handler func(Request) Response) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, conn); err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
			return
		}
		_ = json.NewEncoder(conn).Encode(handler(req))
	}()

	return listener.Addr().String()
}

func TestClient_Value(t *testing.T) {
	requests := make(chan Request, 1)
	address := serveOnce(t, func(req Request) Response {
		requests <- req
		return Response{
			Type:    TypeQuery,
			Success: true,
			Value: &ValueResponse{
				Open:       true,
				Token:      "atom",
				Owner:      "auction1owner",
				Part:       "0.1",
				Bids:       []core.BidEntry{{Addr: "auction1bidder", Amount: 9}},
				HighestBid: core.BidEntry{Addr: "auction1bidder", Amount: 9},
			},
		}
	})

	client, err := NewClient(NetworkTCP, address)
	assert.NoError(t, err)

	value, err := client.Value(context.Background(), "auction1contract")
	assert.NoError(t, err)
	received := <-requests
	check.Equal(t, TypeQuery, received.Type)
	check.Equal(t, "auction1contract", received.Contract)
	check.NotNil(t, received.Query.Value)
	check.Equal(t, []core.BidEntry{{Addr: "auction1bidder", Amount: 9}}, value.Bids)
	check.Equal(t, uint64(9), value.HighestBid.Amount)
}

func TestClient_Bid_RemoteError(t *testing.T) {
	requests := make(chan Request, 1)
	address := serveOnce(t, func(req Request) Response {
		requests <- req
		return Response{
			Type:    TypeExecute,
			Success: false,
			Error:   NewErrorBody(&core.BidTooLowError{Highest: 9, SenderTotal: 0}),
		}
	})

	client, err := NewClient(NetworkTCP, address)
	assert.NoError(t, err)

	_, err = client.Bid(context.Background(), "auction1contract", "auction1sender", []core.Coin{{Denom: "atom", Amount: 5}})

	var tooLow *core.BidTooLowError
	assert.True(t, errors.As(err, &tooLow))
	check.Equal(t, uint64(9), tooLow.Highest)

	received := <-requests
	check.Equal(t, "auction1sender", received.Sender)
	check.NotNil(t, received.Execute.Bid)
	check.Equal(t, []core.Coin{{Denom: "atom", Amount: 5}}, received.Funds)
}

func TestNewClient_InvalidNetwork(t *testing.T) {
	_, err := NewClient("udp", "127.0.0.1:1")
	check.Error(t, err)

	_, err = NewClient(NetworkVsock, "16")
	check.Error(t, err)

	_, err = NewClient(NetworkVsock, "16:5000")
	check.NoError(t, err)
}
