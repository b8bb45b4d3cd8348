package auth

import (
	"crypto/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/inkfleet/inkfleet/internal/config"
	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/logging"
)

var jwtSecret []byte

var (
	loginLimiters sync.Map
	loginRate     = rate.Every(time.Minute / 5) // 5 attempts per minute per IP
)

// Default session timeout is 24 hours, can be overridden via SESSION_TIMEOUT env var.
var sessionTimeout = 24 * time.Hour

func init() {
	if secret := config.Get("JWT_SECRET", ""); secret != "" {
		jwtSecret = []byte(secret)
	} else {
		jwtSecret = make([]byte, 32)
		rand.Read(jwtSecret)
	}
	sessionTimeout = config.GetDuration("SESSION_TIMEOUT", 24*time.Hour)
}

func getLoginLimiter(ip string) *rate.Limiter {
	val, ok := loginLimiters.Load(ip)
	if ok {
		return val.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(loginRate, 5)
	loginLimiters.Store(ip, limiter)
	return limiter
}

func allowInsecure() bool {
	return config.GetBool("ALLOW_INSECURE", false)
}

// SeedAdminUser ensures an operator account exists, created from
// ADMIN_USERNAME and ADMIN_PASSWORD on first boot.
func SeedAdminUser() error {
	username := config.Get("ADMIN_USERNAME", "admin")
	password := config.Get("ADMIN_PASSWORD", "")
	if password == "" {
		logging.WarnWithComponent(logging.ComponentAuth, "ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	db := database.GetDB()
	var count int64
	if err := db.Model(&database.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &database.User{
		Username: username,
		Password: string(hash),
		IsAdmin:  true,
	}
	if err := db.Create(user).Error; err != nil {
		return err
	}
	logging.InfoWithComponent(logging.ComponentAuth, "admin user created", "username", username)
	return nil
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler authenticates an operator and issues a session token as
// an HTTP-only cookie.
func LoginHandler(c *gin.Context) {
	if !getLoginLimiter(c.ClientIP()).Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts"})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	db := database.GetDB()
	var user database.User
	if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"exp":      now.Add(sessionTimeout).Unix(),
		"iat":      now.Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	db.Model(&user).Update("last_login", now)

	secure := !allowInsecure()
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("auth_token", tokenString, int(sessionTimeout.Seconds()), "/", "", secure, true)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LogoutHandler clears the session cookie.
func LogoutHandler(c *gin.Context) {
	secure := !allowInsecure()
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("auth_token", "", -1, "/", "", secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Middleware authenticates operator requests from the session cookie or
// an Authorization bearer token and stores the user in the context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		username, _ := claims["username"].(string)

		db := database.GetDB()
		var user database.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie("auth_token"); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireUser fetches the authenticated user placed by Middleware.
// Writes the error response itself when no user is present.
func RequireUser(c *gin.Context) (*database.User, bool) {
	val, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	user, ok := val.(*database.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	return user, true
}
