package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
)

type DeviceHandler struct {
	DB *gorm.DB
}

func NewDeviceHandler(db *gorm.DB) *DeviceHandler {
	return &DeviceHandler{DB: db}
}

type registerDeviceReq struct {
	DeviceID string            `json:"device_id"`
	Meta     map[string]string `json:"meta"`
}

// Register records a client-generated device identity. Registering an
// already-known identity just bumps last_seen_at; the identity itself
// is never reissued server-side.
func (h *DeviceHandler) Register(c *fiber.Ctx) error {
	var req registerDeviceReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = strings.TrimSpace(c.Get("X-Device-ID"))
	}
	if deviceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "device_id is required",
		})
	}

	var existing models.Device
	err := h.DB.Where("device_id = ?", deviceID).First(&existing).Error
	if err == nil {
		if err := h.DB.Model(&existing).Update("last_seen_at", time.Now()).Error; err != nil {
			log.Println("Error updating device last_seen_at:", err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"is_new":  false,
			"data":    existing,
		})
	}
	if err != gorm.ErrRecordNotFound {
		log.Println("Error fetching device:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to register device",
		})
	}

	dev := models.Device{
		DeviceID:   deviceID,
		LastSeenAt: time.Now(),
	}
	if len(req.Meta) > 0 {
		if b, err := json.Marshal(req.Meta); err == nil {
			dev.Meta = datatypes.JSON(b)
		}
	}

	if err := h.DB.Create(&dev).Error; err != nil {
		log.Println("Error creating device:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to register device",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"is_new":  true,
		"data":    dev,
	})
}
