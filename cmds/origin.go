package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pollum-io/pali-gateway/types"
)

var OriginCmds = &cli.Command{
	Name:        "origin",
	Usage:       "origin cmds",
	Subcommands: []*cli.Command{listOriginCmds, getOriginStateCmds, publishEventCmds},
}

var listOriginCmds = &cli.Command{
	Name:  "list",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		infos, err := api.ListOriginInfo(cctx.Context)
		if err != nil {
			return err
		}
		infoBytes, err := json.MarshalIndent(infos, " ", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(infoBytes))
		return nil
	},
}

var getOriginStateCmds = &cli.Command{
	Name:      "state",
	Flags:     []cli.Flag{},
	ArgsUsage: "origin",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		origin := cctx.Args().Get(0)
		info, err := api.GetOriginInfo(cctx.Context, origin)
		if err != nil {
			return err
		}
		infoBytes, err := json.MarshalIndent(info, " ", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(infoBytes))
		return nil
	},
}

var publishEventCmds = &cli.Command{
	Name:      "publish",
	Usage:     "push a wallet event to one origin, or to all with an empty origin",
	ArgsUsage: "event [origin] [payload-json]",
	Flags:     []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		event := types.DomainEvent(cctx.Args().Get(0))
		origin := cctx.Args().Get(1)
		var payload json.RawMessage
		if raw := cctx.Args().Get(2); raw != "" {
			payload = json.RawMessage(raw)
		}

		delivered, err := api.PublishEvent(cctx.Context, event, origin, payload)
		if err != nil {
			return err
		}
		fmt.Printf("delivered to %d channel(s)\n", delivered)
		return nil
	},
}
