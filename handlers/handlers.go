package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"food-delivery/panel/backend"
	"food-delivery/panel/chat"
	"food-delivery/panel/imagegen"
	"food-delivery/panel/models"
	"food-delivery/panel/orders"
)

const dashboardCacheKey = "panel:dashboard"
const dashboardCacheTTL = 30 * time.Second

// Server holds the panel's wired components and serves the UI-facing API.
type Server struct {
	rdb      *redis.Client
	backend  *backend.Client
	orders   *orders.Controller
	chat     *chat.Engine
	imagegen *imagegen.Generator

	wsMu      sync.Mutex
	wsClients map[*websocket.Conn]struct{}
}

func NewServer(rdb *redis.Client, bc *backend.Client, oc *orders.Controller, ce *chat.Engine, ig *imagegen.Generator) *Server {
	return &Server{
		rdb:       rdb,
		backend:   bc,
		orders:    oc,
		chat:      ce,
		imagegen:  ig,
		wsClients: make(map[*websocket.Conn]struct{}),
	}
}

// SetupRoutes registers the panel API on the app.
func (s *Server) SetupRoutes(app *fiber.App) {
	v1 := app.Group("/api/v1")

	ord := v1.Group("/orders")
	ord.Get("/", s.getOrders)
	ord.Post("/:id/advance", s.advanceOrder)
	ord.Post("/:id/accept", s.acceptOrder)
	ord.Post("/:id/cancel", s.requestCancel)
	ord.Post("/:id/cancel/confirm", s.confirmCancel)

	chats := v1.Group("/chats")
	chats.Get("/", s.getChats)
	chats.Get("/:id/messages", s.getMessages)
	chats.Post("/:id/messages", s.sendMessage)

	v1.Get("/dashboard", s.getDashboard)

	marketing := v1.Group("/marketing")
	marketing.Post("/image", s.generateImage)
	marketing.Get("/prompts", s.getRecentPrompts)
}

// @Summary List orders
// @Tags Orders
// @Produce json
// @Param status query string false "Order status filter, omit or 'All' for everything"
// @Success 200 {array} models.Order
// @Router /orders [get]
func (s *Server) getOrders(c *fiber.Ctx) error {
	status := models.OrderStatus(c.Query("status"))
	if status == "All" {
		status = ""
	}

	// The controller owns the filter so the periodic refresh follows the
	// operator's last selection. The panel serves a single dashboard
	// session; concurrent sessions share one filter.
	if err := s.orders.SetFilter(c.Context(), status); err != nil {
		if status != "" && !status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		// Keep serving the stale snapshot alongside the error so the
		// table never blanks out.
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":  err.Error(),
			"orders": s.orders.Orders(),
		})
	}
	return c.JSON(s.orders.Orders())
}

// @Summary Advance an order to its next status
// @Tags Orders
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Router /orders/{id}/advance [post]
func (s *Server) advanceOrder(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	if err := s.orders.Advance(c.Context(), id); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"orders": s.orders.Orders()})
}

// @Summary Accept a pending order
// @Tags Orders
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Router /orders/{id}/accept [post]
func (s *Server) acceptOrder(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	if err := s.orders.Accept(c.Context(), id); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"orders": s.orders.Orders()})
}

// @Summary Request order cancellation (step 1 of 2)
// @Tags Orders
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Router /orders/{id}/cancel [post]
func (s *Server) requestCancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	if err := s.orders.RequestCancel(id); err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.JSON(fiber.Map{
		"pending": id,
		"message": "confirm cancellation to proceed",
	})
}

// @Summary Confirm a requested cancellation (step 2 of 2)
// @Tags Orders
// @Success 200 {object} map[string]interface{}
// @Router /orders/{id}/cancel/confirm [post]
func (s *Server) confirmCancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	if s.orders.PendingCancel() != id {
		return fiber.NewError(fiber.StatusConflict, "no cancellation pending for this order")
	}
	if err := s.orders.ConfirmCancel(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"orders": s.orders.Orders()})
}

type chatSummary struct {
	models.Chat
	DisplayName string `json:"displayName"`
}

// @Summary List chat conversations
// @Tags Chats
// @Produce json
// @Success 200 {array} models.Chat
// @Router /chats [get]
func (s *Server) getChats(c *fiber.Ctx) error {
	chats, err := s.chat.LoadChats(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	summaries := make([]chatSummary, len(chats))
	for i, ch := range chats {
		summaries[i] = chatSummary{Chat: ch, DisplayName: ch.DisplayName()}
	}
	return c.JSON(fiber.Map{
		"chats":     summaries,
		"connected": s.chat.Connected(),
	})
}

// @Summary Open a conversation and fetch its messages
// @Tags Chats
// @Produce json
// @Param id path int true "Chat ID"
// @Success 200 {array} models.Message
// @Router /chats/{id}/messages [get]
func (s *Server) getMessages(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat id")
	}
	msgs, err := s.chat.Open(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(msgs)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// @Summary Send a chat message
// @Tags Chats
// @Accept json
// @Param id path int true "Chat ID"
// @Success 201 {object} models.Message
// @Router /chats/{id}/messages [post]
func (s *Server) sendMessage(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid chat id")
	}
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := s.chat.Send(c.Context(), id, req.Text)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
			"draft": s.chat.Draft(),
		})
	}
	if msg.ID == "" {
		// Blank text or a send already in flight: intentional no-op.
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// @Summary Dashboard summary stats
// @Tags Dashboard
// @Produce json
// @Success 200 {object} backend.DashboardStats
// @Router /dashboard [get]
func (s *Server) getDashboard(c *fiber.Ctx) error {
	ctx := c.Context()

	if cached, err := s.rdb.Get(ctx, dashboardCacheKey).Bytes(); err == nil {
		var stats backend.DashboardStats
		if json.Unmarshal(cached, &stats) == nil {
			return c.JSON(stats)
		}
	}

	stats, err := s.backend.Dashboard(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	s.cacheDashboard(ctx, stats)
	return c.JSON(stats)
}

func (s *Server) cacheDashboard(ctx context.Context, stats backend.DashboardStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	s.rdb.Set(ctx, dashboardCacheKey, data, dashboardCacheTTL)
}

type generateImageRequest struct {
	BusinessID string `json:"businessId"`
	Prompt     string `json:"prompt"`
}

// @Summary Generate a marketing image from a prompt
// @Tags Marketing
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /marketing/image [post]
func (s *Server) generateImage(c *fiber.Ctx) error {
	var req generateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "prompt must not be empty")
	}
	url, err := s.imagegen.Generate(c.Context(), req.BusinessID, req.Prompt)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"url": url})
}

// @Summary Recent marketing prompts for a business
// @Tags Marketing
// @Produce json
// @Success 200 {array} string
// @Router /marketing/prompts [get]
func (s *Server) getRecentPrompts(c *fiber.Ctx) error {
	businessID := c.Query("businessId")
	if businessID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "businessId is required")
	}
	prompts, err := s.imagegen.RecentPrompts(c.Context(), businessID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(prompts)
}
