package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) listProducts(c *gin.Context) {
	list, err := g.catalog.List(c.Request.Context(), repository.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("query"),
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (g *Gateway) adminProducts(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid page")
			return
		}
		page = n
	}

	result, err := g.catalog.AdminPage(c.Request.Context(), page)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (g *Gateway) listCategories(c *gin.Context) {
	categories, err := g.catalog.Categories(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (g *Gateway) getProductBySlug(c *gin.Context) {
	p, err := g.catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (g *Gateway) getProduct(c *gin.Context) {
	p, err := g.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// createProduct stores the posted product, or a placeholder when the body
// is empty.
func (g *Gateway) createProduct(c *gin.Context) {
	p := g.catalog.Sample()
	if c.Request.ContentLength != 0 {
		p = &models.Product{}
		if err := c.ShouldBindJSON(p); err != nil {
			badRequest(c, "Invalid product payload")
			return
		}
	}

	created, err := g.catalog.Create(c.Request.Context(), p)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product Created", "product": created})
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "Invalid product payload")
		return
	}

	updated, err := g.catalog.Update(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product Updated", "product": updated})
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	if err := g.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product Deleted"})
}

func (g *Gateway) createReview(c *gin.Context) {
	var req catalog.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid review payload")
		return
	}

	user, _ := auth.CurrentUser(c)
	p, err := g.catalog.AddReview(c.Request.Context(), c.Param("id"), user.Name, req)
	if err != nil {
		g.respondError(c, err)
		return
	}

	var review *models.Review
	if n := len(p.Reviews); n > 0 {
		review = &p.Reviews[n-1]
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Review Created",
		"review":     review,
		"numReviews": p.NumReviews,
		"rating":     p.Rating,
	})
}
