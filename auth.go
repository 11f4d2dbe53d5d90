package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/filecoin-project/go-jsonrpc/auth"
	"go.opencensus.io/trace"

	"github.com/pollum-io/pali-gateway/types"
	"github.com/pollum-io/pali-gateway/utils"
)

type LocalAuthHandler struct {
	Verify func(ctx context.Context, token string) ([]auth.Permission, error)
	Next   http.HandlerFunc
}

func jwtUserFromToken(token string) (string, error) {
	sks := strings.Split(token, ".")
	if len(sks) != 3 {
		return "", fmt.Errorf("invalid token")
	}

	enc := []byte(sks[1])
	encoding := base64.RawURLEncoding
	dec := make([]byte, encoding.DecodedLen(len(enc)))
	if _, err := encoding.Decode(dec, enc); err != nil {
		return "", err
	}
	payload := &utils.GatewayClaims{}
	err := json.Unmarshal(dec, payload)
	return payload.Name, err
}

func (h *LocalAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "LocalAuthHandler.ServeHTTP",
		func(so *trace.StartOptions) { so.Sampler = trace.AlwaysSample() })
	defer span.End()

	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.FormValue("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	if len(token) == 0 {
		// local call doesn't need a token
		if strings.Split(r.RemoteAddr, ":")[0] == "127.0.0.1" {
			ctx = auth.WithPerm(ctx, []auth.Permission{"read", "write", "admin"})
		} else {
			message := "JWT verification failed, empty token"
			span.SetStatus(trace.Status{Code: trace.StatusCodeUnauthenticated, Message: message})
			log.Warnf(message)
			w.WriteHeader(401)
			return
		}
	}

	ctx = context.WithValue(ctx, types.IPKey, h.getClientIp(r))

	if token != "" {
		if !strings.HasPrefix(token, "Bearer ") {
			log.Warn("missing Bearer prefix in auth header")
			w.WriteHeader(401)
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		if mayUser, _ := jwtUserFromToken(token); len(mayUser) != 0 {
			span.AddAttributes(trace.StringAttribute("Account-Unverified", mayUser))
		}

		span.AddAttributes(trace.StringAttribute("X-Real-IP", r.RemoteAddr),
			trace.StringAttribute("preHost", r.Host))

		perms, err := h.Verify(ctx, token)
		if err != nil {
			message := fmt.Sprintf("JWT Verification failed (originating from %s): %s", r.RemoteAddr, err.Error())
			span.SetStatus(trace.Status{
				Code:    trace.StatusCodeUnauthenticated,
				Message: message})
			log.Warnf(message)
			w.WriteHeader(401)
			return
		}

		ctx = auth.WithPerm(ctx, append([]auth.Permission{}, perms...))
	}

	h.Next(w, r.WithContext(ctx))
}

func (h *LocalAuthHandler) getClientIp(r *http.Request) string {
	realIp := r.Header.Get("X-Real-IP")
	if len(realIp) == 0 {
		return r.RemoteAddr
	}
	return realIp
}
