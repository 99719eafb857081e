// Package auth はパスワード認証、トークン発行・検証のビジネスロジックを提供する。
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/authgate/internal/model"
)

// Claims はトークンに含めるクレーム。標準クレームとユーザーIDを持つ。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenManager はHS256署名付きトークンの発行と検証を提供する。
// 署名鍵はプロセス起動時に1回読み込まれ、以後読み取り専用として
// 全ハンドラーで安全に共有される。鍵をログに出力してはならない。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl}
}

// Issue は指定ユーザーIDに紐づく有効期限付きトークンを発行する。
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify はトークンの署名と有効期限を検証し、ユーザーIDを取り出す。
// 期限切れの場合はTOKEN_EXPIRED、署名不一致・構造不正の場合はTOKEN_INVALIDの
// APIErrorを返す。呼び出し側が同一のHTTPステータスにマッピングする場合でも、
// ログ・デバッグのためにこの2種類は区別する。
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.NewTokenExpiredError()
		}
		return "", model.NewTokenInvalidError()
	}

	if !token.Valid || claims.UserID == "" {
		return "", model.NewTokenInvalidError()
	}

	return claims.UserID, nil
}
