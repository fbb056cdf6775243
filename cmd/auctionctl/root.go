package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// Flag and config keys. Each is also read from AUCTIONCTL_<KEY>.
const (
	keyServer  = "server"
	keyNetwork = "network"
	keySender  = "sender"
	keyTimeout = "timeout"
	keyFormat  = "format"
)

type cli struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCmd(v *viper.Viper, out io.Writer) *cobra.Command {
	c := &cli{v: v, out: out}
	var configFile string

	root := &cobra.Command{
		Use:   "auctionctl",
		Short: "Client for auctiond escrow auctions",
		Long: `auctionctl sends instantiate, execute and query requests to an auctiond
server over TCP or vsock. Flags can also be set through AUCTIONCTL_* environment
variables or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return nil
			}
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", configFile, err)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	flags.String(keyServer, "127.0.0.1:7700", "auctiond address; <cid>:<port> for vsock")
	flags.String(keyNetwork, auctionapi.NetworkTCP, "transport: tcp or vsock")
	flags.String(keySender, "", "address the request is sent as")
	flags.Duration(keyTimeout, 30*time.Second, "request timeout")
	flags.String(keyFormat, "text", "output format: text or json")

	for _, key := range []string{keyServer, keyNetwork, keySender, keyTimeout, keyFormat} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}
	v.SetEnvPrefix("AUCTIONCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		c.pingCmd(),
		c.instantiateCmd(),
		c.bidCmd(),
		c.closeCmd(),
		c.retractCmd(),
		c.queryCmd(),
		c.mintCmd(),
		c.balanceCmd(),
		c.contractsCmd(),
	)
	return root
}

func (c *cli) client() (*auctionapi.Client, error) {
	return auctionapi.NewClient(c.v.GetString(keyNetwork), c.v.GetString(keyServer),
		auctionapi.WithTimeout(c.v.GetDuration(keyTimeout)))
}

func (c *cli) sender() (string, error) {
	sender := c.v.GetString(keySender)
	if sender == "" {
		return "", fmt.Errorf("--%s (or AUCTIONCTL_SENDER) is required", keySender)
	}
	return sender, nil
}

func (c *cli) ctx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
