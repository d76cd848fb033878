package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/bike-store/errors"
	"github.com/yashrajoria/bike-store/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection is a list-and-append document collection.
type Collection interface {
	List(ctx context.Context) ([]bson.M, error)
	Insert(ctx context.Context, doc bson.M) (*models.InsertResult, error)
}

// CollectionController exposes reviews, blogs and users.
type CollectionController struct {
	collection Collection
}

func NewCollectionController(collection Collection) *CollectionController {
	return &CollectionController{collection: collection}
}

func (cc *CollectionController) List(c *gin.Context) {
	docs, err := cc.collection.List(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (cc *CollectionController) Insert(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	res, err := cc.collection.Insert(c.Request.Context(), doc)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
