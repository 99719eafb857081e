// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup は新規ユーザーを登録する。
	Signup(ctx context.Context, email, password string) (*model.User, error)
	// Login は認証情報を検証し、アクセストークンを発行する。
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	// ValidateToken はトークンを検証し、対応するユーザーを返す。
	ValidateToken(ctx context.Context, token string) (*model.User, error)
	// GetCurrentUser は検証済みのユーザーIDからユーザーを取得する。
	GetCurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.AuthCollector
}

// NewAuthHandler はAuthHandlerを生成する。
// collectorはnilでもよい（メトリクス記録をスキップする）。
func NewAuthHandler(service AuthServiceInterface, collector metrics.AuthCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
	}
}

// credentialsRequest はsignup/loginリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
// password_hashは決して含めない。
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// signupResponse はユーザー登録のAPIレスポンス。
type signupResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// loginResponse はログインのAPIレスポンス。
type loginResponse struct {
	Message     string       `json:"message"`
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

// validateTokenResponse はトークン検証のAPIレスポンス。
type validateTokenResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Signup は新規ユーザー登録を処理する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	user, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordSignup()
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Message: "ユーザーを登録しました。",
		User:    toUserResponse(user),
	})
}

// Login はログインを処理し、アクセストークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.collector != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) {
				h.collector.RecordLoginFailure(apiErr.Code)
			} else {
				h.collector.RecordLoginFailure(model.ErrCodeInternal)
			}
		}
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordLoginSuccess()
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message:     "ログインに成功しました。",
		AccessToken: token,
		User:        toUserResponse(user),
	})
}

// ValidateToken はBearerトークンの有効性を検証し、ユーザー情報を返す。
// GET /token/validate
// Bearer認証ミドルウェアの外に配置し、トークン不正・期限切れ・アカウント無効・
// ユーザー不存在をそれぞれ区別して返す。
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerTokenFromRequest(r)
	if !ok {
		if h.collector != nil {
			h.collector.RecordTokenValidation(model.ErrCodeTokenInvalid)
		}
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	user, err := h.service.ValidateToken(r.Context(), token)
	if err != nil {
		if h.collector != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) {
				h.collector.RecordTokenValidation(apiErr.Code)
			} else {
				h.collector.RecordTokenValidation(model.ErrCodeInternal)
			}
		}
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordTokenValidation("valid")
	}

	writeJSON(w, http.StatusOK, validateTokenResponse{
		Message: "トークンは有効です。",
		User:    toUserResponse(user),
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /user
// Bearer認証ミドルウェアを通過済みのリクエストを前提とする。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Hello は疎通確認用のエンドポイント。
// GET /hello, POST /hello
func (h *AuthHandler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Hello! I'm a message that came from the backend.",
	})
}

// --- ヘルパー関数 ---

// bearerTokenFromRequest はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerTokenFromRequest(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Email:    user.Email,
		IsActive: user.IsActive,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログのみに記録し、クライアントには一般的な500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeDuplicateEmail:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeAccountInactive,
		model.ErrCodeTokenInvalid, model.ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
