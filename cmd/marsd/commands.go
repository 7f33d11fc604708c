package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mars-protocol/contracts-sub007/core"
	"github.com/mars-protocol/contracts-sub007/core/genesis"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

func initCommand(opts *rootOptions) *cobra.Command {
	var genesisPath string
	c := &cobra.Command{
		Use:   "init",
		Short: "Writes the genesis state into an empty store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			path := genesisPath
			if path == "" {
				path = rt.cfg.GenesisFile
			}
			spec, err := genesis.LoadGenesisSpec(path)
			if err != nil {
				return err
			}
			result, err := rt.dispatcher.InitGenesis(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	c.Flags().StringVar(&genesisPath, "genesis", "", "Genesis file; defaults to genesis_file from the config")
	return c
}

type execFlags struct {
	sender string
	funds  string
	height uint64
	time   int64
	file   string
}

func execCommand(opts *rootOptions) *cobra.Command {
	flags := &execFlags{}
	c := &cobra.Command{
		Use:   "exec [message-json]",
		Short: "Executes one message envelope as a single turn",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEnvelope(cmd.InOrStdin(), flags.file, args)
			if err != nil {
				return err
			}
			msg, err := core.DecodeMessage(raw)
			if err != nil {
				return err
			}
			env, err := flags.env(time.Now())
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			result, err := rt.dispatcher.Execute(cmd.Context(), env, msg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	f := c.Flags()
	f.StringVar(&flags.sender, "sender", "", "Address signing the message")
	f.StringVar(&flags.funds, "funds", "", "Coins attached to the message, e.g. 100uosmo,5uatom")
	f.Uint64Var(&flags.height, "height", 1, "Block height of the turn")
	f.Int64Var(&flags.time, "time", 0, "Block time in unix seconds; defaults to now")
	f.StringVar(&flags.file, "file", "", "Read the envelope from a file; - reads stdin")
	_ = c.MarkFlagRequired("sender")
	return c
}

func (f *execFlags) env(now time.Time) (types.Env, error) {
	funds, err := types.ParseCoins(f.funds)
	if err != nil {
		return types.Env{}, fmt.Errorf("funds: %w", err)
	}
	blockTime := f.time
	if blockTime == 0 {
		blockTime = now.Unix()
	}
	if blockTime < 0 {
		return types.Env{}, fmt.Errorf("time must not be negative")
	}
	return types.Env{
		BlockHeight: f.height,
		BlockTime:   uint64(blockTime),
		Sender:      strings.TrimSpace(f.sender),
		Funds:       funds,
	}, nil
}

func readEnvelope(stdin io.Reader, file string, args []string) ([]byte, error) {
	switch {
	case file == "-":
		return io.ReadAll(stdin)
	case file != "":
		return os.ReadFile(file)
	case len(args) == 1:
		return []byte(args[0]), nil
	default:
		return nil, fmt.Errorf("message envelope required as argument or --file")
	}
}

func queryCommand(opts *rootOptions) *cobra.Command {
	var at int64
	c := &cobra.Command{
		Use:   "query <namespace> [path]",
		Short: "Reads committed state",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			blockTime := at
			if blockTime <= 0 {
				blockTime = time.Now().Unix()
			}

			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			res, err := rt.dispatcher.QueryState(cmd.Context(), uint64(blockTime), args[0], path)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), json.RawMessage(res.Value))
		},
	}
	c.Flags().Int64Var(&at, "time", 0, "Block time in unix seconds used for interest and price reads")
	return c
}

func migrateCommand(opts *rootOptions) *cobra.Command {
	var from string
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrades state written by an older release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			result, err := rt.dispatcher.Migrate(cmd.Context(), from)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	c.Flags().StringVar(&from, "from", "", "Version currently stored")
	_ = c.MarkFlagRequired("from")
	return c
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
