// routes/routes.go
package routes

import (
	"net/http"

	"eshop/controllers"
	"eshop/middleware"
	"eshop/utils"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Controllers bundles the resource routers mounted under the API prefix.
type Controllers struct {
	Categories *controllers.CategoryController
	Products   *controllers.ProductController
	Orders     *controllers.OrderController
	Users      *controllers.UserController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, apiPrefix, uploadDir string, c Controllers) {
	// Uploaded images
	router.PathPrefix(utils.PublicUploadPath).
		Handler(http.StripPrefix(utils.PublicUploadPath, http.FileServer(http.Dir(uploadDir)))).
		Methods(http.MethodGet, http.MethodHead)

	api := router.PathPrefix(apiPrefix).Subrouter()

	// Category routes
	api.HandleFunc("/categories", c.Categories.GetCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", c.Categories.CreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/get/count", c.Categories.CountCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", c.Categories.GetCategoryByID).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", c.Categories.UpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", c.Categories.DeleteCategory).Methods(http.MethodDelete)

	// Product routes; the fixed paths go before /products/{id}
	api.HandleFunc("/products", c.Products.GetProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", c.Products.CreateProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/all", c.Products.GetAllProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/get/count", c.Products.CountProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/get/featured/{count}", c.Products.GetFeaturedProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/gallery-images/{id}", c.Products.UpdateGalleryImages).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", c.Products.GetProductByID).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", c.Products.UpdateProduct).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", c.Products.DeleteProduct).Methods(http.MethodDelete)

	// Order routes
	api.HandleFunc("/orders", c.Orders.GetOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", c.Orders.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/get/totalsales", c.Orders.GetTotalSales).Methods(http.MethodGet)
	api.HandleFunc("/orders/get/count", c.Orders.CountOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/get/userorders/{userid}", c.Orders.GetUserOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", c.Orders.GetOrderByID).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", c.Orders.UpdateOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}", c.Orders.DeleteOrder).Methods(http.MethodDelete)

	// User routes
	api.HandleFunc("/users", c.Users.GetUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", c.Users.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/login", c.Users.Login).Methods(http.MethodPost)
	api.HandleFunc("/users/register", c.Users.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/get/count", c.Users.CountUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", c.Users.GetUserByID).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", c.Users.DeleteUser).Methods(http.MethodDelete)
}

// Wrap puts the router behind the authorization gate, panic recovery, CORS
// and request logging, outermost last. The gate wraps the whole router so
// unknown protected paths are rejected before routing.
func Wrap(router http.Handler, gate *middleware.Gate, logger logrus.FieldLogger) http.Handler {
	var h http.Handler = gate.Middleware(router)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.RequestIDHeader}),
		handlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
	)(h)
	return middleware.RequestLogger(logger)(h)
}
