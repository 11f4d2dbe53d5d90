package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

var PopupCmds = &cli.Command{
	Name:        "popup",
	Usage:       "popup cmds",
	Subcommands: []*cli.Command{listPendingPopupCmds},
}

var listPendingPopupCmds = &cli.Command{
	Name:  "pending",
	Usage: "show the outstanding confirmation popup, if any",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		pending, err := api.ListPendingPopup(cctx.Context)
		if err != nil {
			return err
		}
		pendingBytes, err := json.MarshalIndent(pending, " ", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(pendingBytes))
		return nil
	},
}
