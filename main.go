package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/etherlabsio/healthcheck/v2"
	"github.com/filecoin-project/go-jsonrpc"
	"github.com/gorilla/mux"
	"github.com/ipfs-force-community/metrics"
	logging "github.com/ipfs/go-log/v2"
	multiaddr "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/plugin/ochttp"

	"github.com/pollum-io/pali-gateway/api"
	"github.com/pollum-io/pali-gateway/cmds"
	"github.com/pollum-io/pali-gateway/config"
	"github.com/pollum-io/pali-gateway/dispatch"
	"github.com/pollum-io/pali-gateway/fanout"
	"github.com/pollum-io/pali-gateway/keyring"
	localMetrics "github.com/pollum-io/pali-gateway/metrics"
	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/testhelper"
	"github.com/pollum-io/pali-gateway/txrouter"
	"github.com/pollum-io/pali-gateway/types"
	"github.com/pollum-io/pali-gateway/utils"
	"github.com/pollum-io/pali-gateway/version"
)

var log = logging.Logger("main")

func main() {
	_ = logging.SetLogLevel("*", "INFO")

	app := &cli.App{
		Name:  "pali-gateway",
		Usage: "message gateway between dapp pages and the wallet core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "host address and port the gateway api will listen on",
				Value: "/ip4/127.0.0.1/tcp/45321",
			},
		},
		Commands: []*cli.Command{
			runCmd, cmds.OriginCmds, cmds.PopupCmds,
		},
	}
	app.Version = version.UserVersion
	if err := app.Run(os.Args); err != nil {
		log.Warn(err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "start pali-gateway daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to config.toml, flags override file values"},
		&cli.StringFlag{Name: "keyring-url", Usage: "wallet-core keyring endpoint, empty runs the in-memory dev keyring"},
		&cli.StringFlag{Name: "keyring-token", Usage: "token for the keyring endpoint"},
		&cli.StringFlag{Name: "jaeger-proxy", EnvVars: []string{"PALI_GATEWAY_JAEGER_PROXY"}},
		&cli.Float64Flag{Name: "trace-sampler", EnvVars: []string{"PALI_GATEWAY_TRACE_SAMPLER"}, Value: 1.0},
		&cli.StringFlag{Name: "trace-node-name", Value: "pali-gateway"},
	},
	Action: func(cctx *cli.Context) error {
		cfg := config.DefaultConfig()
		if path := cctx.String("config"); path != "" {
			fileCfg, err := config.ReadConfig(path)
			if err != nil {
				return fmt.Errorf("read config %s: %w", path, err)
			}
			cfg = fileCfg
		}
		if cctx.IsSet("listen") || cfg.API.ListenAddress == "" {
			cfg.API.ListenAddress = cctx.String("listen")
		}
		if cctx.IsSet("keyring-url") {
			cfg.Keyring.URL = cctx.String("keyring-url")
		}
		if cctx.IsSet("keyring-token") {
			cfg.Keyring.Token = cctx.String("keyring-token")
		}

		if proxy := strings.TrimSpace(cctx.String("jaeger-proxy")); len(proxy) != 0 {
			cfg.Trace.JaegerTracingEnabled = true
			cfg.Trace.ProbabilitySampler = cctx.Float64("trace-sampler")
			cfg.Trace.JaegerEndpoint = proxy
			cfg.Trace.ServerName = strings.TrimSpace(cctx.String("trace-node-name"))
		}

		return RunMain(cctx.Context, cfg)
	},
}

func RunMain(ctx context.Context, cfg *config.Config) error {
	log.Infof("pali-gateway current version %s, listen %s", version.UserVersion, cfg.API.ListenAddress)

	var keyringHandler types.IKeyringHandler
	if cfg.Keyring.URL == "" {
		log.Warn("no keyring url configured, running the in-memory dev keyring")
		keyringHandler = testhelper.NewMemKeyring()
	} else {
		handler, closer, err := keyring.NewKeyringClient(ctx, cfg.Keyring.URL, cfg.Keyring.Token)
		if err != nil {
			return fmt.Errorf("dial keyring %s: %w", cfg.Keyring.URL, err)
		}
		defer closer()
		keyringHandler = handler
	}

	registry := origins.NewOriginRegistry()
	originStream := origins.NewOriginEventStream(registry, cfg.Request)
	broker := popup.NewBroker(ctx, cfg.Request)
	router := txrouter.NewRouter(broker, keyringHandler, cfg.Popup)
	guard := dispatch.NewAccessGuard(registry, keyringHandler)
	publisher := fanout.NewPublisher(registry, chainNamer(keyringHandler))
	dispatcher := dispatch.NewDispatcher(registry, guard, broker, router, publisher, keyringHandler)

	gatewayAPIImpl := api.NewGatewayAPIImpl(dispatcher, broker, originStream, registry, publisher)

	log.Info("Setting up control endpoint at " + cfg.API.ListenAddress)

	gatewayAPI := api.PermissionedGatewayAPI(gatewayAPIImpl)

	mux := mux.NewRouter()
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register("Gateway", gatewayAPI)
	mux.Handle("/rpc/v1", rpcServer)

	mux.Handle("/healthcheck", healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker("keyring", healthcheck.CheckerFunc(func(ctx context.Context) error {
			_, err := keyringHandler.IsLocked(ctx)
			return err
		})),
	))

	mux.PathPrefix("/").Handler(http.DefaultServeMux)

	localJwt, err := utils.NewLocalJwtClient(".")
	if err != nil {
		return fmt.Errorf("make token failed:%s", err.Error())
	}
	err = localJwt.SaveToken()
	if err != nil {
		return err
	}

	handler := (http.Handler)(&LocalAuthHandler{
		Verify: localJwt.Verify,
		Next:   mux.ServeHTTP,
	})

	if repoter, err := metrics.RegisterJaeger(cfg.Trace.ServerName, cfg.Trace); err != nil {
		log.Fatalf("register %s JaegerRepoter to %s failed:%s", cfg.Trace.ServerName, cfg.Trace.JaegerEndpoint, err)
	} else if repoter != nil {
		log.Infof("register jaeger-tracing exporter to %s, with node-name:%s", cfg.Trace.JaegerEndpoint, cfg.Trace.ServerName)
		defer metrics.UnregisterJaeger(repoter)
		handler = &ochttp.Handler{Handler: handler}
	}

	if err := localMetrics.SetupMetrics(ctx, cfg.Metrics, gatewayAPIImpl); err != nil {
		return err
	}

	srv := &http.Server{Handler: handler}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warnw("received shutdown", "signal", sig)
		case <-ctx.Done():
			log.Warn("received shutdown")
		}

		log.Info("Shutting down...")
		if err := srv.Shutdown(context.TODO()); err != nil {
			log.Errorf("shutting down RPC server failed: %s", err)
		}
	}()

	addr, err := multiaddr.NewMultiaddr(cfg.API.ListenAddress)
	if err != nil {
		return err
	}

	nl, err := manet.Listen(addr)
	if err != nil {
		return err
	}

	log.Infof("start to rpc listen %s", nl.Addr())
	if err = srv.Serve(manet.NetListener(nl)); err != nil && err != http.ErrServerClosed {
		return err
	}

	log.Info("Graceful shutdown successful")
	return nil
}

// chainNamer labels event ids with the active network; a keyring outage falls
// back to the bare label so events still flow.
func chainNamer(handler types.IKeyringHandler) fanout.ChainNamer {
	return func(ctx context.Context) string {
		network, err := handler.GetNetwork(ctx)
		if err != nil || network == nil {
			return "unknown"
		}
		return network.Name
	}
}
