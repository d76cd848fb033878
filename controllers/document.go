package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/bike-store/models"
	"go.mongodb.org/mongo-driver/bson"
)

// bindDocument decodes the request body as a schema-free document. It answers
// 400 and returns false when the body is not a JSON object.
func bindDocument(c *gin.Context) (bson.M, bool) {
	doc, err := models.DecodeDocument(c.Request.Body)
	if err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, models.ErrNotAnObject) {
			msg = "Request body must be a JSON object"
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
		return nil, false
	}
	return doc, true
}
