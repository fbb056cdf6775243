package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that auctiond is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			resp, err := client.Ping(c.ctx(cmd))
			if err != nil {
				return err
			}
			return c.print(resp, func() { fmt.Fprintln(c.out, resp.Message) })
		},
	}
}

func (c *cli) instantiateCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "instantiate <msg>",
		Short: "Create an auction",
		Long: `Create an auction from an instantiate message given as a file path or
inline JSON, for example '{"part":"0.1","token":"atom"}'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := c.sender()
			if err != nil {
				return err
			}
			data, err := readJSONInput(args[0])
			if err != nil {
				return err
			}
			var msg auctionapi.InstantiateMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				return fmt.Errorf("parse instantiate message: %w", err)
			}

			client, err := c.client()
			if err != nil {
				return err
			}
			contract, resp, err := client.Instantiate(c.ctx(cmd), sender, label, msg)
			if err != nil {
				return err
			}
			return c.print(resp, func() { fmt.Fprintln(c.out, contract) })
		},
	}
	cmd.Flags().StringVar(&label, "label", "auction", "human readable label of the auction")
	return cmd
}

func (c *cli) bidCmd() *cobra.Command {
	var funds string
	cmd := &cobra.Command{
		Use:   "bid <contract>",
		Short: "Bid with attached funds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := c.sender()
			if err != nil {
				return err
			}
			coins, err := parseCoins(funds)
			if err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			resp, err := client.Bid(c.ctx(cmd), args[0], sender, coins)
			if err != nil {
				return err
			}
			return c.print(resp, func() { c.printCall(resp) })
		},
	}
	cmd.Flags().StringVar(&funds, "funds", "", "attached funds, e.g. 10atom or 10atom,5uosmo")
	return cmd
}

func (c *cli) closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <contract>",
		Short: "Close bidding and pay the winning bid to the owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := c.sender()
			if err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			resp, err := client.Close(c.ctx(cmd), args[0], sender)
			if err != nil {
				return err
			}
			return c.print(resp, func() { c.printCall(resp) })
		},
	}
}

func (c *cli) retractCmd() *cobra.Command {
	var receiver string
	cmd := &cobra.Command{
		Use:   "retract <contract>",
		Short: "Withdraw a losing bid after bidding closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := c.sender()
			if err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			var to *string
			if cmd.Flags().Changed("receiver") {
				to = &receiver
			}
			resp, err := client.Retract(c.ctx(cmd), args[0], sender, to)
			if err != nil {
				return err
			}
			return c.print(resp, func() { c.printCall(resp) })
		},
	}
	cmd.Flags().StringVar(&receiver, "receiver", "", "address receiving the refund (default: sender)")
	return cmd
}

func (c *cli) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <contract>",
		Short: "Show the auction value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			value, err := client.Value(c.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return c.print(value, func() { c.printValue(value) })
		},
	}
}

func (c *cli) mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <address> <coins>",
		Short: "Credit coins to an address (development servers only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coins, err := parseCoins(args[1])
			if err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			if err := client.Mint(c.ctx(cmd), args[0], coins); err != nil {
				return err
			}
			return c.print(map[string]any{"minted": coins}, func() { fmt.Fprintln(c.out, "minted", formatCoins(coins)) })
		},
	}
}

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show every balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			coins, err := client.Balance(c.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return c.print(coins, func() { fmt.Fprintln(c.out, formatCoins(coins)) })
		},
	}
}

func (c *cli) contractsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contracts",
		Short: "List every auction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			contracts, err := client.Contracts(c.ctx(cmd))
			if err != nil {
				return err
			}
			return c.print(contracts, func() {
				for _, info := range contracts {
					fmt.Fprintf(c.out, "%s\t%s\t%s\n", info.Address, info.Creator, info.Label)
				}
			})
		},
	}
}
