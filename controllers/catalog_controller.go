package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/services"
)

// CatalogController serves the bikes collection.
type CatalogController struct {
	catalog services.CatalogService
}

func NewCatalogController(catalog services.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// ListBikes handles GET /bikes.
func (cc *CatalogController) ListBikes(c *gin.Context) {
	bikes, err := cc.catalog.ListBikes(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bikes)
}

// BikeDetails handles GET /bike-details/:id. The answer is an array, empty
// when no bike has that id.
func (cc *CatalogController) BikeDetails(c *gin.Context) {
	bikes, err := cc.catalog.BikeDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bikes)
}

// AddBike handles POST /bikes.
func (cc *CatalogController) AddBike(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := cc.catalog.AddBike(c.Request.Context(), doc)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteBike handles DELETE /bikes/:id.
func (cc *CatalogController) DeleteBike(c *gin.Context) {
	res, err := cc.catalog.DeleteBike(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
