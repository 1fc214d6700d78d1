package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crystal-mush/riftcore/pkg/boltstore"
	"github.com/crystal-mush/riftcore/pkg/world"
)

var errInvalidCredentials = errors.New("invalid credentials")

// Claims holds the JWT claims for an authenticated match session.
type Claims struct {
	Account  string       `json:"account"`
	Team     world.TeamID `json:"team"`
	Champion string       `json:"champion"`
	Admin    bool         `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// AuthService issues and checks session tokens for accounts in the store.
type AuthService struct {
	store  *boltstore.Store
	jwtKey []byte
	expiry time.Duration
	issuer string
}

// NewAuthService creates an auth service. If jwtSecret is empty, a random
// 32-byte key is generated.
func NewAuthService(store *boltstore.Store, jwtSecret string, expirySeconds int, issuer string) *AuthService {
	var key []byte
	if jwtSecret != "" {
		key = []byte(jwtSecret)
	} else {
		key = make([]byte, 32)
		rand.Read(key)
	}
	expiry := 24 * time.Hour
	if expirySeconds > 0 {
		expiry = time.Duration(expirySeconds) * time.Second
	}
	return &AuthService{store: store, jwtKey: key, expiry: expiry, issuer: issuer}
}

// Register creates an account and returns a token for it.
func (a *AuthService) Register(name, password string, team world.TeamID, champion string) (string, error) {
	if a.store == nil {
		return "", errors.New("registration disabled")
	}
	if len(password) < 4 {
		return "", errors.New("password too short")
	}
	if team != world.TeamBlue && team != world.TeamPurple {
		return "", fmt.Errorf("invalid team %v", team)
	}
	acct, err := a.store.CreateAccount(name, password, int(team), champion)
	if err != nil {
		return "", err
	}
	return a.issue(acct)
}

// Login authenticates an account and returns a JWT token.
func (a *AuthService) Login(name, password string) (string, error) {
	if a.store == nil {
		return "", errInvalidCredentials
	}
	acct, err := a.store.Authenticate(name, password)
	if err != nil {
		return "", errInvalidCredentials
	}
	return a.issue(acct)
}

func (a *AuthService) issue(acct *boltstore.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		Account:  acct.Name,
		Team:     world.TeamID(acct.Team),
		Champion: acct.Champion,
		Admin:    acct.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			Issuer:    a.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtKey)
}

// ValidateToken parses and validates a JWT token string.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GenerateJWTSecret generates a random hex-encoded secret suitable for jwt_secret config.
func GenerateJWTSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RefreshToken issues a new token for a still-valid one. Account changes
// since the old token (team, admin) are picked up from the store.
func (a *AuthService) RefreshToken(tokenStr string) (string, error) {
	claims, err := a.ValidateToken(tokenStr)
	if err != nil {
		return "", err
	}
	if a.store != nil {
		acct, err := a.store.GetAccount(claims.Account)
		if err != nil {
			return "", fmt.Errorf("refresh: %w", err)
		}
		return a.issue(acct)
	}
	return a.issue(&boltstore.Account{
		Name:     claims.Account,
		Team:     int(claims.Team),
		Champion: claims.Champion,
		Admin:    claims.Admin,
	})
}

// Guest issues a token for an unregistered player. Guests never have
// admin rights.
func (a *AuthService) Guest(name string, team world.TeamID, champion string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		b := make([]byte, 3)
		rand.Read(b)
		name = "Guest-" + hex.EncodeToString(b)
	}
	if team != world.TeamBlue && team != world.TeamPurple {
		return "", fmt.Errorf("invalid team %v", team)
	}
	if a.store != nil {
		if _, err := a.store.GetAccount(name); err == nil {
			return "", fmt.Errorf("name %q is registered", name)
		}
	}
	return a.issue(&boltstore.Account{Name: name, Team: int(team), Champion: champion})
}
