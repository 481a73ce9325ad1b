package handlers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/utils"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/validation"
)

// Auth failure codes, matching the vocabulary the login screen maps to
// field messages.
const (
	CodeInvalidCredential = "invalid-credential"
	CodeUserNotFound      = "user-not-found"
	CodeWrongPassword     = "wrong-password"
	CodeTooManyRequests   = "too-many-requests"
	CodeOther             = "other"
)

const (
	maxLoginAttempts   = 5
	loginAttemptWindow = 15 * time.Minute
)

type AuthHandler struct {
	DB        *gorm.DB
	RDB       *redis.Client
	JWTSecret string
	Expires   int
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

// authFail reports a remote auth failure. The code drives the client
// mapping; the message is always scoped to the password field.
// clearPassword tells the client to blank the password input.
func authFail(c *fiber.Ctx, code, msg string, clearPassword bool) error {
	errs := FieldErrors{}
	errs.Add("password", msg)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        false,
		"code":           code,
		"message":        msg,
		"errors":         errs,
		"clear_password": clearPassword,
	})
}

type LoginReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := req.Password

	// pre-flight checks so a typo never costs a database hit
	errors := FieldErrors{}
	if msg := validation.ValidateEmail(email); msg != "" {
		errors.Add("email", msg)
	}
	if msg := validation.ValidatePassword(password); msg != "" {
		errors.Add("password", msg)
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	if h.tooManyAttempts(c.Context(), email) {
		return authFail(c, CodeTooManyRequests, "Too many failed attempts. Try again later.", false)
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			h.recordFailure(c.Context(), email)
			return authFail(c, CodeUserNotFound, "Incorrect Email or Password", true)
		}
		log.Println("Error fetching user:", err)
		return authFail(c, CodeOther, "Login failed. Please try again.", false)
	}

	if !u.IsActive {
		return authFail(c, CodeInvalidCredential, "Incorrect Email or Password", true)
	}

	if !utils.CheckPassword(u.Password, password) {
		h.recordFailure(c.Context(), email)
		return authFail(c, CodeWrongPassword, "Incorrect Email or Password", true)
	}

	h.clearFailures(c.Context(), email)

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), h.Expires)
	if err != nil {
		return authFail(c, CodeOther, "Login failed. Please try again.", false)
	}

	h.setSessionCookie(c, token)

	// the welcome message uses the name typed in the box, title-cased
	displayName := utils.TitleCase(req.Name)
	if displayName == "" {
		displayName = u.Name
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data": fiber.Map{
			"user": fiber.Map{
				"id":           u.ID,
				"name":         u.Name,
				"email":        u.Email,
				"display_name": displayName,
			},
		},
	})
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid body",
		})
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := req.Password

	errors := FieldErrors{}
	if name == "" {
		errors.Add("name", "Name is required")
	}
	if msg := validation.ValidateEmail(email); msg != "" {
		errors.Add("email", msg)
	}
	if msg := validation.ValidatePassword(password); msg != "" {
		errors.Add("password", msg)
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("email", "Email already registered")
		return validationFail(c, errs)
	} else if err != gorm.ErrRecordNotFound {
		log.Println("Error checking email:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Something went wrong",
		})
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to process password",
		})
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Password: pw,
		IsActive: true,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		log.Println("Error creating user:", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Registration failed",
		})
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), h.Expires)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create token",
		})
	}

	h.setSessionCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful",
		"data": fiber.Map{
			"user": fiber.Map{
				"id":    u.ID,
				"name":  u.Name,
				"email": u.Email,
			},
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "fh_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logout successful",
	})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "fh_token",
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
}

func loginAttemptKey(email string) string {
	return "login:fail:" + email
}

func (h *AuthHandler) tooManyAttempts(ctx context.Context, email string) bool {
	if h.RDB == nil {
		return false
	}
	n, err := h.RDB.Get(ctx, loginAttemptKey(email)).Int()
	if err != nil && err != redis.Nil {
		log.Println("Error reading login attempts:", err)
		return false
	}
	return n >= maxLoginAttempts
}

func (h *AuthHandler) recordFailure(ctx context.Context, email string) {
	if h.RDB == nil {
		return
	}
	key := loginAttemptKey(email)
	if err := h.RDB.Incr(ctx, key).Err(); err != nil {
		log.Println("Error counting login attempt:", err)
		return
	}
	h.RDB.Expire(ctx, key, loginAttemptWindow)
}

func (h *AuthHandler) clearFailures(ctx context.Context, email string) {
	if h.RDB == nil {
		return
	}
	h.RDB.Del(ctx, loginAttemptKey(email))
}
