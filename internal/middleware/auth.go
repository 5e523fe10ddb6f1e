// Package middleware содержит HTTP middleware сервиса наград.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

type contextKey string

const userKey contextKey = "telegramUser"

const (
	// InitDataHeader содержит initData, переданный мини-приложением.
	InitDataHeader = "X-Telegram-Init-Data"
	// DefaultMaxAge ограничивает возраст подписанного initData.
	DefaultMaxAge = 24 * time.Hour
)

var (
	ErrMissingHash     = errors.New("hash not found in init data")
	ErrInvalidHash     = errors.New("invalid init data hash")
	ErrMissingAuthDate = errors.New("auth_date not found in init data")
	ErrExpired         = errors.New("init data expired")
	ErrMissingUser     = errors.New("user not found in init data")
)

// AuthMiddleware проверяет подпись initData хост-платформы и кладёт пользователя в контекст.
type AuthMiddleware struct {
	secretKey     []byte
	maxAge        time.Duration
	allowFallback bool
	logger        *zap.Logger
	now           func() time.Time
}

// NewAuthMiddleware создаёт проверку initData для токена бота.
// При allowFallback запрос без заголовка обслуживается от имени тестового пользователя.
// Без токена секрет не вычисляется и любой initData отклоняется.
func NewAuthMiddleware(botToken string, allowFallback bool, logger *zap.Logger) *AuthMiddleware {
	var secret []byte
	if botToken != "" {
		secret = webAppSecret(botToken)
	}
	return &AuthMiddleware{
		secretKey:     secret,
		maxAge:        DefaultMaxAge,
		allowFallback: allowFallback,
		logger:        logger,
		now:           time.Now,
	}
}

func webAppSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// Middleware проверяет заголовок initData и добавляет пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initData := r.Header.Get(InitDataHeader)
		if initData == "" {
			if !a.allowFallback {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), model.FallbackUser())))
			return
		}

		user, err := a.Validate(initData)
		if err != nil {
			a.logger.Info("init data rejected", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Validate проверяет подпись и срок действия initData и возвращает пользователя.
func (a *AuthMiddleware) Validate(initData string) (model.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return model.TelegramUser{}, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return model.TelegramUser{}, ErrMissingHash
	}

	if len(a.secretKey) == 0 {
		return model.TelegramUser{}, ErrInvalidHash
	}

	expected := a.sign(values)
	if !hmac.Equal([]byte(strings.ToLower(hash)), []byte(expected)) {
		return model.TelegramUser{}, ErrInvalidHash
	}

	authDate := values.Get("auth_date")
	if authDate == "" {
		return model.TelegramUser{}, ErrMissingAuthDate
	}
	unix, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil {
		return model.TelegramUser{}, ErrMissingAuthDate
	}
	if a.now().Sub(time.Unix(unix, 0)) > a.maxAge {
		return model.TelegramUser{}, ErrExpired
	}

	raw := values.Get("user")
	if raw == "" {
		return model.TelegramUser{}, ErrMissingUser
	}
	var user model.TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == 0 {
		return model.TelegramUser{}, ErrMissingUser
	}

	return user, nil
}

// sign строит data_check_string (пары key=value без hash, по алфавиту, через \n)
// и возвращает его HMAC в hex.
func (a *AuthMiddleware) sign(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// WithUser возвращает контекст с пользователем.
func WithUser(ctx context.Context, user model.TelegramUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext извлекает пользователя из контекста запроса.
func GetUserFromContext(ctx context.Context) (model.TelegramUser, bool) {
	user, ok := ctx.Value(userKey).(model.TelegramUser)
	return user, ok
}
