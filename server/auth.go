package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	jwtExpiry        = 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrTooManyLogins  = errors.New("too many login attempts, try again later")
	ErrNotOperator    = errors.New("operator login required")
)

// Auth handles operator authentication
type Auth struct {
	db        *DB
	jwtSecret []byte
	logins    *IPRateLimiter
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db),
		logins:    NewIPRateLimiter(rate.Every(loginRateWindow/maxLoginAttempts), maxLoginAttempts),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// EnsureOperator creates the operator account, or resets its password if
// it already exists
func (a *Auth) EnsureOperator(username, password string) error {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	op, err := a.db.GetOperatorByUsername(username)
	if err != nil {
		return fmt.Errorf("lookup operator: %w", err)
	}
	if op != nil {
		return a.db.SetOperatorPassword(username, string(hash))
	}
	_, err = a.db.CreateOperator(username, string(hash))
	return err
}

// Login authenticates an operator and returns a JWT
func (a *Auth) Login(username, password, ip string) (string, error) {
	if !a.logins.Allow(ip) {
		return "", ErrTooManyLogins
	}

	op, err := a.db.GetOperatorByUsername(strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("database error")
	}
	if op == nil || op.PassHash == "" {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PassHash), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	return a.generateToken(op.ID, op.Username)
}

// ValidateToken validates a JWT and returns the operator's username
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if role, _ := claims["role"].(string); role != "operator" {
		return "", ErrNotOperator
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	return username, nil
}

func (a *Auth) generateToken(operatorID int64, username string) (string, error) {
	claims := jwt.MapClaims{
		"oid":  operatorID,
		"usr":  username,
		"role": "operator",
		"exp":  time.Now().Add(jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}
