package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acaidoheitor/orders-api/internal/metrics"
	"github.com/acaidoheitor/orders-api/internal/notify"
	"github.com/acaidoheitor/orders-api/internal/orders"
	"github.com/acaidoheitor/orders-api/internal/schedule"
	"github.com/acaidoheitor/orders-api/internal/validation"
)

// HandlerConfig groups the dependencies every route closes over. All of
// them are constructed once at startup and injected here.
type HandlerConfig struct {
	Orders   *orders.Store
	Schedule *schedule.Service
	Notifier *notify.Dispatcher
	Metrics  *metrics.Publisher
	Location *time.Location
}

// RegisterRoutes registers the full API surface.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API do Açaí do Heitor está funcionando!")
	})

	// Panel queue: active orders only, oldest first.
	r.GET("/active-orders", func(c *gin.Context) {
		docs, err := cfg.Orders.ListActive(c.Request.Context())
		if err != nil {
			log.Printf("active-orders: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar pedidos ativos."})
			return
		}
		c.JSON(http.StatusOK, emptyIfNil(docs))
	})

	r.GET("/dashboard-stats", func(c *gin.Context) {
		stats, err := cfg.Orders.DashboardStats(c.Request.Context(), cfg.Location)
		if err != nil {
			log.Printf("dashboard-stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar dados do dashboard."})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	r.GET("/search", func(c *gin.Context) {
		term := strings.TrimSpace(c.Query("term"))
		if term == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Termo de busca é obrigatório."})
			return
		}
		docs, err := cfg.Orders.Search(c.Request.Context(), term)
		if err != nil {
			log.Printf("search %q: %v", term, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao realizar busca."})
			return
		}
		c.JSON(http.StatusOK, emptyIfNil(docs))
	})

	r.GET("/orders", func(c *gin.Context) {
		docs, err := cfg.Orders.List(c.Request.Context())
		if err != nil {
			log.Printf("list orders: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar pedidos."})
			return
		}
		c.JSON(http.StatusOK, emptyIfNil(docs))
	})

	// Customer-facing polling: reduced projection, nothing else leaks.
	r.GET("/orders/:id", func(c *gin.Context) {
		id := c.Param("id")
		order, err := cfg.Orders.Get(c.Request.Context(), id)
		if err != nil {
			log.Printf("get order %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao buscar o pedido."})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pedido não encontrado."})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       order.Status,
			"orderId":      order.OrderID,
			"deliveryMode": order.DeliveryMode,
		})
	})

	r.POST("/orders", func(c *gin.Context) {
		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		order := orders.Order{
			Items:        toItems(req.Items),
			Customer:     orders.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone},
			CustomerName: req.CustomerName,
			DeliveryMode: req.DeliveryMode,
			Totals: orders.Totals{
				Subtotal:    req.Totals.Subtotal,
				DeliveryFee: req.Totals.DeliveryFee,
				Total:       req.Totals.Total,
			},
		}

		created, err := cfg.Orders.Create(c.Request.Context(), order)
		if err != nil {
			log.Printf("create order: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao criar pedido."})
			return
		}

		cfg.Metrics.Count(c.Request.Context(), "OrdersCreated")

		c.JSON(http.StatusCreated, gin.H{
			"message": "Pedido criado com sucesso!",
			"id":      created.ID,
			"data":    created,
		})
	})

	r.PATCH("/orders/:id", func(c *gin.Context) {
		id := c.Param("id")

		var req validation.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Novo status é obrigatório."})
			return
		}

		order, err := cfg.Orders.Get(c.Request.Context(), id)
		if err != nil {
			log.Printf("update order %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao atualizar pedido."})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pedido não encontrado."})
			return
		}

		if err := cfg.Orders.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
			if errors.Is(err, orders.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Pedido não encontrado."})
				return
			}
			log.Printf("update order %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao atualizar pedido."})
			return
		}

		// Detached from the response path; the dispatcher swallows failures.
		updated := *order
		updated.Status = req.Status
		go cfg.Notifier.Dispatch(req.Status, updated)

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Pedido %s atualizado com sucesso!", id)})
	})

	r.GET("/store-status", func(c *gin.Context) {
		status, err := cfg.Schedule.Status(c.Request.Context())
		if err != nil {
			log.Printf("store-status: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao verificar status da loja."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	})
}

func toItems(in []validation.Item) []orders.Item {
	out := make([]orders.Item, 0, len(in))
	for _, it := range in {
		out = append(out, orders.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return out
}

// emptyIfNil keeps list endpoints returning [] instead of null.
func emptyIfNil(docs []orders.Document) []orders.Document {
	if docs == nil {
		return []orders.Document{}
	}
	return docs
}
