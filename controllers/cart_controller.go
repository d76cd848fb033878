package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/services"
)

// CartController handles cart item requests.
type CartController struct {
	carts services.CartService
}

func NewCartController(carts services.CartService) *CartController {
	return &CartController{carts: carts}
}

// ListCart handles GET /cart.
func (cc *CartController) ListCart(c *gin.Context) {
	items, err := cc.carts.ListAll(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CartByEmail handles GET /cart/:email.
func (cc *CartController) CartByEmail(c *gin.Context) {
	items, err := cc.carts.ListByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// AddItem handles POST /cart.
func (cc *CartController) AddItem(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := cc.carts.AddItem(c.Request.Context(), doc)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RemoveItem handles DELETE /cart/:id/:email.
func (cc *CartController) RemoveItem(c *gin.Context) {
	res, err := cc.carts.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("email"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
