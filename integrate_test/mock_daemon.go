package integrate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-jsonrpc/auth"
	"github.com/gorilla/mux"
	logging "github.com/ipfs/go-log/v2"

	"github.com/pollum-io/pali-gateway/api"
	"github.com/pollum-io/pali-gateway/dispatch"
	"github.com/pollum-io/pali-gateway/fanout"
	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/popup"
	"github.com/pollum-io/pali-gateway/testhelper"
	"github.com/pollum-io/pali-gateway/txrouter"
	"github.com/pollum-io/pali-gateway/types"
	"github.com/pollum-io/pali-gateway/utils"
)

var log = logging.Logger("mock main")

type mockDaemon struct {
	url     string
	token   []byte
	keyring *testhelper.MemKeyring
}

// MockMain runs the full gateway stack against an in-memory keyring behind an
// httptest server and returns what a client needs to dial it.
func MockMain(ctx context.Context, repoPath string) (*mockDaemon, error) {
	requestCfg := &types.RequestConfig{
		RequestQueueSize:    30,
		DefaultPopupTimeout: time.Second * 2,
		HardwareSignTimeout: time.Second * 4,
		ClearInterval:       time.Minute * 5,
	}
	closeCfg := &types.AutoCloseConfig{
		SuccessDelay:    time.Millisecond * 30,
		ErrorDelay:      time.Millisecond * 60,
		PendingFallback: time.Minute,
	}

	keyring := testhelper.NewMemKeyring()
	registry := origins.NewOriginRegistry()
	originStream := origins.NewOriginEventStream(registry, requestCfg)
	broker := popup.NewBroker(ctx, requestCfg)
	router := txrouter.NewRouter(broker, keyring, closeCfg)
	guard := dispatch.NewAccessGuard(registry, keyring)
	publisher := fanout.NewPublisher(registry, func(context.Context) string { return "mainnet" })
	dispatcher := dispatch.NewDispatcher(registry, guard, broker, router, publisher, keyring)

	gatewayAPIImpl := api.NewGatewayAPIImpl(dispatcher, broker, originStream, registry, publisher)
	gatewayAPI := api.PermissionedGatewayAPI(gatewayAPIImpl)

	mux := mux.NewRouter()
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register("Gateway", gatewayAPI)
	mux.Handle("/rpc/v1", rpcServer)

	localJwt, err := utils.NewLocalJwtClient(repoPath)
	if err != nil {
		return nil, err
	}

	handler := authMux(localJwt, mux)

	srv := httptest.NewServer(handler)
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Infof("mock gateway listening on %s", srv.URL)
	return &mockDaemon{
		url:     srv.URL,
		token:   localJwt.Token,
		keyring: keyring,
	}, nil
}

// authMux is the test-sized rendition of the daemon's auth middleware: Bearer
// tokens only, no localhost bypass, so perm tags are actually enforced.
func authMux(localJwt *utils.LocalJwtClient, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if !strings.HasPrefix(token, "Bearer ") {
			w.WriteHeader(401)
			return
		}
		perms, err := localJwt.Verify(r.Context(), strings.TrimPrefix(token, "Bearer "))
		if err != nil {
			w.WriteHeader(401)
			return
		}
		ctx := auth.WithPerm(r.Context(), perms)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// wsURL rewrites an httptest server url for the websocket rpc endpoint.
func wsURL(serverURL string) string {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		panic(err)
	}
	return "ws://" + parsed.Host + "/rpc/v1"
}
