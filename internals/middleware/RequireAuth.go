package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	logger "github.com/SimonShangpliang/cfl-iitg/loggers"
)

type AccessDetails struct {
	AccessUuid string
	Email      string
}

type RefreshDetails struct {
	RefreshUuid string
	Email       string
}

type TokenPair struct {
	AccessToken  string
	AccessUuid   string
	AtExpires    int64
	RefreshToken string
	RefreshUuid  string
	RtExpires    int64
}

// AuthMiddleware authenticates requests through an access/refresh JWT pair
// whose uuids are held in redis with matching TTLs.
type AuthMiddleware struct {
	rdb *redis.Client
}

func NewAuthMiddleware(rdb *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{rdb: rdb}
}

func (m *AuthMiddleware) GenerateTokensAndSaveInCookies(c *gin.Context, email string) error {
	tokenPair, err := CreateTokenPair(email)
	if err != nil {
		logger.Logger.Error("failed to create token pair :", err)
		return err
	}
	if err := m.SaveTokenPair(c.Request.Context(), tokenPair, email); err != nil {
		logger.Logger.Error("failed to save tokens in redis :", err)
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("access_token", tokenPair.AccessToken, 3600, "/", "", false, true)
	c.SetCookie("refresh_token", tokenPair.RefreshToken, 7*24*3600, "/", "", false, true)
	return nil
}

func CreateTokenPair(email string) (*TokenPair, error) {
	var err error
	token := &TokenPair{
		AtExpires:   time.Now().Add(time.Minute * 15).Unix(),
		RtExpires:   time.Now().Add(time.Hour * 24 * 7).Unix(),
		AccessUuid:  uuid.New().String(),
		RefreshUuid: uuid.New().String(),
	}

	atClaims := jwt.MapClaims{
		"authorized":  true,
		"access_uuid": token.AccessUuid,
		"email":       email,
		"exp":         token.AtExpires,
	}
	at := jwt.NewWithClaims(jwt.SigningMethodHS256, atClaims)
	token.AccessToken, err = at.SignedString([]byte(os.Getenv("ACCESS_SECRET")))
	if err != nil {
		logger.Logger.Error("signing of access token failed :", err)
		return nil, err
	}

	rtClaims := jwt.MapClaims{
		"refresh_uuid": token.RefreshUuid,
		"email":        email,
		"exp":          token.RtExpires,
	}
	rt := jwt.NewWithClaims(jwt.SigningMethodHS256, rtClaims)
	token.RefreshToken, err = rt.SignedString([]byte(os.Getenv("REFRESH_SECRET")))
	if err != nil {
		logger.Logger.Error("signing of refresh token failed :", err)
		return nil, err
	}
	return token, nil
}

// SaveTokenPair maps both token uuids back to the session owner in redis so
// Authenticate can resolve them until they expire.
func (m *AuthMiddleware) SaveTokenPair(ctx context.Context, tokenObj *TokenPair, email string) error {
	at := time.Unix(tokenObj.AtExpires, 0)
	rt := time.Unix(tokenObj.RtExpires, 0)
	now := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.rdb.Set(ctx, tokenObj.AccessUuid, email, at.Sub(now)).Err(); err != nil {
		logger.Logger.Error("failed to insert access token in redis : ", err)
		return err
	}
	if err := m.rdb.Set(ctx, tokenObj.RefreshUuid, email, rt.Sub(now)).Err(); err != nil {
		logger.Logger.Error("failed to insert refresh token in redis : ", err)
		return err
	}
	return nil
}

// Authenticate is the gin handler guarding protected routes. A missing or
// stale access token falls back to the refresh flow before rejecting.
func (m *AuthMiddleware) Authenticate(c *gin.Context) {
	tokenString, err := c.Cookie("access_token")
	if err != nil {
		m.RefreshTokenFlow(c)
		return
	}
	accessTokenMetaData, err := extractAccessTokenMetadata(tokenString)
	if err != nil {
		logger.Logger.Error("access token metadata failed :", err)
		m.RefreshTokenFlow(c)
		return
	}
	email, err := m.FetchAuth(c.Request.Context(), accessTokenMetaData)
	if err != nil {
		logger.Logger.Error("token expired or invalid :", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired or invalid"})
		c.Abort()
		return
	}
	c.Set("email", email)
	c.Next()
}

func extractAccessTokenMetadata(tokenString string) (*AccessDetails, error) {
	secret := os.Getenv("ACCESS_SECRET")
	if secret == "" {
		return nil, errors.New("ACCESS_SECRET is not set")
	}
	claims, err := extractTokenMetadata(tokenString, secret, []string{"access_uuid", "email"})
	if err != nil {
		return nil, err
	}
	return &AccessDetails{
		AccessUuid: claims["access_uuid"].(string),
		Email:      claims["email"].(string),
	}, nil
}

func extractRefreshTokenMetadata(refreshString string) (*RefreshDetails, error) {
	secret := os.Getenv("REFRESH_SECRET")
	if secret == "" {
		return nil, errors.New("REFRESH_SECRET is not set")
	}
	claims, err := extractTokenMetadata(refreshString, secret, []string{"refresh_uuid", "email"})
	if err != nil {
		return nil, err
	}
	return &RefreshDetails{
		RefreshUuid: claims["refresh_uuid"].(string),
		Email:       claims["email"].(string),
	}, nil
}

func extractTokenMetadata(tokenString string, secret string, expectedClaims []string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if exp, ok := claims["exp"].(float64); !ok || float64(time.Now().Unix()) > exp {
		return nil, errors.New("token expired")
	}
	for _, claim := range expectedClaims {
		if _, ok := claims[claim]; !ok {
			return nil, fmt.Errorf("missing required claim: %s", claim)
		}
	}
	return claims, nil
}

func (m *AuthMiddleware) RefreshTokenFlow(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "refresh token missing",
		})
		return
	}

	refreshTokenDetails, err := extractRefreshTokenMetadata(refreshToken)
	if err != nil {
		logger.Logger.Error("failed to extract refresh metadata : ", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "failed to extract refresh token metadata",
		})
		return
	}

	if err := m.GenerateTokensAndSaveInCookies(c, refreshTokenDetails.Email); err != nil {
		logger.Logger.Error("failed to create new tokens ", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"message": "failed to refresh session",
		})
		return
	}
	c.Set("email", refreshTokenDetails.Email)
	c.Next()
}

func (m *AuthMiddleware) FetchAuth(ctx context.Context, metadata *AccessDetails) (string, error) {
	return m.rdb.Get(ctx, metadata.AccessUuid).Result()
}
