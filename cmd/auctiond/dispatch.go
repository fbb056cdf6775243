package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

func errorResponse(typ string, err error) auctionapi.Response {
	return auctionapi.Response{
		Type:    typ,
		Success: false,
		Message: err.Error(),
		Error:   auctionapi.NewErrorBody(err),
	}
}

func callResponse(typ string, resp *core.Response) auctionapi.Response {
	return auctionapi.Response{
		Type:       typ,
		Success:    true,
		Attributes: resp.Attributes,
		Transfers:  resp.Transfers,
	}
}

// dispatch routes req to the host and renders the outcome.
func (s *Server) dispatch(ctx context.Context, req auctionapi.Request) auctionapi.Response {
	started := time.Now()

	response, err := s.route(ctx, req)
	if err != nil {
		response = errorResponse(req.Type, err)
		s.logger.Info("request failed",
			zap.String("type", req.Type),
			zap.String("kind", response.Error.Kind),
			zap.Error(err))
	}
	response.ProcessingTime = time.Since(started).Milliseconds()
	return response
}

func (s *Server) route(ctx context.Context, req auctionapi.Request) (auctionapi.Response, error) {
	switch req.Type {
	case auctionapi.TypePing:
		return auctionapi.Response{
			Type:    auctionapi.TypePong,
			Success: true,
			Message: "auctiond is healthy",
		}, nil

	case auctionapi.TypeInstantiate:
		if req.Instantiate == nil {
			return auctionapi.Response{}, errors.Wrap(auctionapi.ErrBadRequest, "instantiate message missing")
		}
		params, err := req.Instantiate.Params()
		if err != nil {
			return auctionapi.Response{}, err
		}
		contract, resp, err := s.host.Instantiate(ctx, req.Sender, req.Label, params)
		if err != nil {
			return auctionapi.Response{}, err
		}
		out := callResponse(req.Type, resp)
		out.Contract = contract.String()
		return out, nil

	case auctionapi.TypeExecute:
		return s.execute(ctx, req)

	case auctionapi.TypeQuery:
		if req.Query == nil || req.Query.Value == nil {
			return auctionapi.Response{}, errors.Wrap(auctionapi.ErrBadRequest, "unsupported query")
		}
		value, err := s.host.Query(ctx, req.Contract)
		if err != nil {
			return auctionapi.Response{}, err
		}
		return auctionapi.Response{Type: req.Type, Success: true, Value: auctionapi.NewValueResponse(value)}, nil

	case auctionapi.TypeMint:
		if !s.allowMint {
			return auctionapi.Response{}, errors.Wrap(auctionapi.ErrBadRequest, "minting is disabled")
		}
		if err := s.host.Mint(ctx, req.Address, req.Funds); err != nil {
			return auctionapi.Response{}, err
		}
		return auctionapi.Response{Type: req.Type, Success: true}, nil

	case auctionapi.TypeBalance:
		balances, err := s.host.Balances(ctx, req.Address)
		if err != nil {
			return auctionapi.Response{}, err
		}
		return auctionapi.Response{Type: req.Type, Success: true, Balances: balances}, nil

	case auctionapi.TypeContracts:
		infos, err := s.host.Contracts(ctx)
		if err != nil {
			return auctionapi.Response{}, err
		}
		contracts := make([]auctionapi.ContractInfo, 0, len(infos))
		for _, info := range infos {
			contracts = append(contracts, auctionapi.ContractInfo{
				Address: info.Address.String(),
				Creator: info.Creator.String(),
				Label:   info.Label,
				Created: info.Created,
				Name:    info.Name,
				Version: info.Version,
			})
		}
		return auctionapi.Response{Type: req.Type, Success: true, Contracts: contracts}, nil

	default:
		return auctionapi.Response{}, errors.Wrapf(auctionapi.ErrBadRequest, "unknown request type: %q", req.Type)
	}
}

func (s *Server) execute(ctx context.Context, req auctionapi.Request) (auctionapi.Response, error) {
	if req.Execute == nil {
		return auctionapi.Response{}, errors.Wrap(auctionapi.ErrBadRequest, "execute message missing")
	}
	op, err := req.Execute.Operation()
	if err != nil {
		return auctionapi.Response{}, err
	}

	var resp *core.Response
	switch op {
	case "bid":
		resp, err = s.host.Bid(ctx, req.Contract, req.Sender, req.Funds)
	case "close":
		resp, err = s.host.Close(ctx, req.Contract, req.Sender)
	case "retract":
		resp, err = s.host.Retract(ctx, req.Contract, req.Sender, req.Execute.Retract.Receiver)
	}
	if err != nil {
		return auctionapi.Response{}, err
	}
	return callResponse(req.Type, resp), nil
}
