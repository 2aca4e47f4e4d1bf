package gateway

import (
	"net/http"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/orders"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) createOrder(c *gin.Context) {
	var req orders.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid order payload")
		return
	}

	user, _ := auth.CurrentUser(c)
	order, err := g.orders.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		g.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "New Order Created", "order": order})
}

func (g *Gateway) listMyOrders(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	list, err := g.orders.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// loadOwnOrder returns the order when the caller owns it or is an admin.
func (g *Gateway) loadOwnOrder(c *gin.Context) (*models.Order, bool) {
	order, err := g.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return nil, false
	}

	user, _ := auth.CurrentUser(c)
	if order.User != user.ID && !user.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
		return nil, false
	}
	return order, true
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, ok := g.loadOwnOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) payOrder(c *gin.Context) {
	var req models.PaymentResult
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid payment payload")
		return
	}
	if _, ok := g.loadOwnOrder(c); !ok {
		return
	}

	order, err := g.orders.ConfirmPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order Paid", "order": order})
}

func (g *Gateway) deliverOrder(c *gin.Context) {
	if _, err := g.orders.MarkDelivered(c.Request.Context(), c.Param("id")); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order Delivered"})
}

func (g *Gateway) listOrders(c *gin.Context) {
	list, err := g.orders.ListAll(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (g *Gateway) deleteOrder(c *gin.Context) {
	if err := g.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order Deleted"})
}

func (g *Gateway) summary(c *gin.Context) {
	s, err := g.orders.Summary(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type quoteRequest struct {
	Items []catalog.QuoteLine `json:"items"`
}

func (g *Gateway) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid cart payload")
		return
	}
	if len(req.Items) == 0 {
		badRequest(c, "Cart is empty")
		return
	}

	q, err := g.catalog.Quote(c.Request.Context(), req.Items)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
