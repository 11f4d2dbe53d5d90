package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"io/ioutil"
	"path"

	"github.com/filecoin-project/go-jsonrpc/auth"
	"github.com/golang-jwt/jwt/v4"
)

const TokenFile = "token"

// GatewayClaims is the payload minted into gateway tokens. Perm carries the
// highest permission level; Verify expands it into the full set.
type GatewayClaims struct {
	Name string `json:"name"`
	Perm string `json:"perm"`
	jwt.RegisteredClaims
}

// AdaptPerms expands a level into the permission set the RPC proxy checks
// against. Levels are cumulative: admin implies write implies read.
func AdaptPerms(perm string) []auth.Permission {
	switch perm {
	case "admin":
		return []auth.Permission{"read", "write", "admin"}
	case "write":
		return []auth.Permission{"read", "write"}
	default:
		return []auth.Permission{"read"}
	}
}

// todo: replace with the extension host handing out per-process tokens
type LocalJwtClient struct {
	repo   string
	Seckey []byte
	Token  []byte
}

func NewLocalJwtClient(repo string) (*LocalJwtClient, error) {
	var err error
	var seckey []byte
	if seckey, err = ioutil.ReadAll(io.LimitReader(rand.Reader, 32)); err != nil {
		return nil, err
	}

	claims := &GatewayClaims{
		Name: "GateWayLocalToken",
		Perm: "admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(seckey)
	if err != nil {
		return nil, err
	}

	return &LocalJwtClient{
		repo:   repo,
		Seckey: seckey,
		Token:  []byte(token),
	}, nil
}

func (l *LocalJwtClient) Verify(ctx context.Context, token string) ([]auth.Permission, error) {
	var claims GatewayClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return l.Seckey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("JWT Verification failed: %v", err)
	}
	return AdaptPerms(claims.Perm), nil
}

func (l *LocalJwtClient) SaveToken() error {
	return ioutil.WriteFile(path.Join(l.repo, TokenFile), l.Token, 0644)
}
