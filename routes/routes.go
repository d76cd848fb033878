package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/bike-store/controllers"
)

// Handlers groups the controllers the router dispatches to.
type Handlers struct {
	Health   *controllers.HealthController
	Catalog  *controllers.CatalogController
	Carts    *controllers.CartController
	Payments *controllers.PaymentController
	Reviews  *controllers.CollectionController
	Blogs    *controllers.CollectionController
	Users    *controllers.CollectionController
}

// Register mounts the storefront API.
func Register(r *gin.Engine, h Handlers) {
	r.GET("/", h.Health.Root)
	r.GET("/health", h.Health.Health)

	r.GET("/bikes", h.Catalog.ListBikes)
	r.POST("/bikes", h.Catalog.AddBike)
	r.DELETE("/bikes/:id", h.Catalog.DeleteBike)
	r.GET("/bike-details/:id", h.Catalog.BikeDetails)

	r.GET("/reviews", h.Reviews.List)

	r.GET("/cart", h.Carts.ListCart)
	r.GET("/cart/:email", h.Carts.CartByEmail)
	r.POST("/cart", h.Carts.AddItem)
	r.DELETE("/cart/:id/:email", h.Carts.RemoveItem)

	r.GET("/blogs", h.Blogs.List)
	r.POST("/blogs", h.Blogs.Insert)

	r.GET("/users", h.Users.List)
	r.POST("/users", h.Users.Insert)

	r.POST("/create-payment-intent", h.Payments.CreatePaymentIntent)
	r.GET("/payments", h.Payments.ListPayments)
	r.GET("/payments/:email", h.Payments.PaymentsByEmail)
	r.POST("/payments", h.Payments.RecordPayment)
	r.PATCH("/payments/:id/:email/:confirmation", h.Payments.ConfirmPayment)
}
