package cmds

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/urfave/cli/v2"

	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/types"
)

type GatewayAPI struct {
	ListOriginInfo   func(ctx context.Context) ([]*origins.OriginInfo, error)
	GetOriginInfo    func(ctx context.Context, origin string) (*origins.OriginInfo, error)
	ListPendingPopup func(ctx context.Context) ([]*popup.PendingState, error)
	PublishEvent     func(ctx context.Context, event types.DomainEvent, origin string, payload json.RawMessage) (int, error)
}

func NewGatewayClient(ctx *cli.Context) (*GatewayAPI, jsonrpc.ClientCloser, error) {
	var gatewayAPI = &GatewayAPI{}
	listen := ctx.String("listen")
	addr, err := DialArgs(listen)
	if err != nil {
		return nil, nil, err
	}
	header := http.Header{}

	const tokenFile = "./token"
	var token []byte

	if token, err = ioutil.ReadFile(tokenFile); err != nil {
		return nil, nil, err
	}

	header.Add("Authorization", "Bearer "+string(token))

	closer, err := jsonrpc.NewMergeClient(ctx.Context, addr,
		"Gateway", []interface{}{gatewayAPI}, header)
	if err != nil {
		return nil, nil, err
	}
	return gatewayAPI, closer, nil
}

func DialArgs(addr string) (string, error) {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err == nil {
		_, addr, err := manet.DialArgs(ma)
		if err != nil {
			return "", err
		}

		return "ws://" + addr + "/rpc/v1", nil
	}

	_, err = url.Parse(addr)
	if err != nil {
		return "", err
	}
	return addr + "/rpc/v1", nil
}
