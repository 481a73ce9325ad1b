package handlers

import (
	"log"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/realtime"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/services/review"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/stats"
)

type ReviewHandler struct {
	Service *review.Service
	Hub     *realtime.Hub
}

func NewReviewHandler(svc *review.Service, hub *realtime.Hub) *ReviewHandler {
	return &ReviewHandler{Service: svc, Hub: hub}
}

// ListMine returns the calling device's reviews, newest first.
func (h *ReviewHandler) ListMine(c *fiber.Ctx) error {
	uid := deviceID(c)

	reviews, err := h.Service.ListByDevice(c.Context(), uid)
	if err != nil {
		log.Println("Error fetching reviews:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch reviews",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": reviews})
}

// Create submits a new review for the calling device.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	uid := deviceID(c)

	var in review.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	rv, err := h.Service.Submit(c.Context(), uid, in)
	if err != nil {
		return h.writeError(c, err, "Failed to submit feedback")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Feedback Submitted!",
		"data":    rv,
	})
}

// Update rewrites name/rating/comment of the device's own review.
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	uid := deviceID(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid review ID",
		})
	}

	var in review.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	rv, err := h.Service.Update(c.Context(), id, uid, in)
	if err != nil {
		return h.writeError(c, err, "Failed to update feedback")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Feedback Updated!",
		"data":    rv,
	})
}

// Delete removes the device's own review.
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	uid := deviceID(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid review ID",
		})
	}

	if err := h.Service.Delete(c.Context(), id, uid); err != nil {
		return h.writeError(c, err, "Failed to delete feedback")
	}

	return c.JSON(fiber.Map{"success": true})
}

// Stats returns the global average/count.
func (h *ReviewHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Service.Stats(c.Context())
	if err != nil {
		log.Println("Error computing stats:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to compute stats",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": st})
}

func (h *ReviewHandler) writeError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case review.IsValidationErr(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	case err == review.ErrNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Review not found",
		})
	case err == review.ErrNotOwner:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	default:
		log.Println("Review store error:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": fallback,
		})
	}
}

// WebSocketHandler serves the live queries: on connect it opens the
// device-scoped review subscription and the global stats subscription,
// and pushes the full current set to the socket on every change. Both
// subscriptions are torn down when the socket goes away.
func (h *ReviewHandler) WebSocketHandler(c *websocket.Conn) {
	uid := c.Query("device_id")
	if uid == "" {
		log.Println("WebSocket: device_id parameter missing")
		c.Close()
		return
	}

	log.Printf("WebSocket: device %s connected\n", uid)

	client := realtime.NewClient(uid)

	cancelList := h.Hub.Subscribe(realtime.Filter{UID: uid}, func(rs []models.Review) {
		// the store does not guarantee order; newest first before push
		sort.Slice(rs, func(i, j int) bool { return rs[i].Date.After(rs[j].Date) })
		client.Push(fiber.Map{"type": "reviews", "data": rs})
	})
	cancelStats := h.Hub.Subscribe(realtime.Filter{}, func(rs []models.Review) {
		client.Push(fiber.Map{"type": "stats", "data": stats.Aggregate(rs)})
	})

	done := make(chan struct{})
	defer func() {
		cancelList()
		cancelStats()
		close(done)
		log.Printf("WebSocket: device %s disconnected\n", uid)
	}()

	// Send messages from hub to client
	go func() {
		for {
			select {
			case <-done:
				return
			case msg := <-client.Send:
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Println("WebSocket write error:", err)
					return
				}
			}
		}
	}()

	// Read messages from client (keep connection alive)
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
