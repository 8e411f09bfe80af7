package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/utils"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxUploadMemory  = 10 << 20
	maxGalleryImages = 10
)

// ProductController handles product-related requests
type ProductController struct {
	Products   store.ProductStore
	Categories store.CategoryStore
	Images     *utils.ImageStore
	Log        logrus.FieldLogger
	Timeout    time.Duration
}

// NewProductController creates a new ProductController
func NewProductController(stores *store.Stores, images *utils.ImageStore, logger logrus.FieldLogger, timeout time.Duration) *ProductController {
	return &ProductController{
		Products:   stores.Products,
		Categories: stores.Categories,
		Images:     images,
		Log:        logger,
		Timeout:    timeout,
	}
}

// productForm is the multipart body of product create/replace.
type productForm struct {
	Name            string
	Description     string
	RichDescription string
	Brand           string
	Price           float64
	CategoryID      primitive.ObjectID
	CountInStock    int
	Rating          float64
	NumReviews      int
	IsFeatured      bool
}

func parseProductForm(r *http.Request) (*productForm, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("%w: failed to parse multipart form", utils.ErrValidation)
	}

	get := func(key string) string { return strings.TrimSpace(r.FormValue(key)) }
	if err := requireFields(map[string]string{
		"name":         get("name"),
		"description":  get("description"),
		"categoryID":   get("categoryID"),
		"countInStock": get("countInStock"),
	}); err != nil {
		return nil, err
	}

	form := &productForm{
		Name:            get("name"),
		Description:     get("description"),
		RichDescription: get("richDescription"),
		Brand:           get("brand"),
	}

	var err error
	if form.CategoryID, err = primitive.ObjectIDFromHex(get("categoryID")); err != nil {
		return nil, fmt.Errorf("%w: Invalid Category", utils.ErrValidation)
	}
	if form.CountInStock, err = strconv.Atoi(get("countInStock")); err != nil || form.CountInStock < 0 || form.CountInStock > models.MaxStock {
		return nil, fmt.Errorf("%w: countInStock must be an integer between 0 and %d", utils.ErrValidation, models.MaxStock)
	}
	if v := get("price"); v != "" {
		if form.Price, err = strconv.ParseFloat(v, 64); err != nil || form.Price < 0 {
			return nil, fmt.Errorf("%w: price must be a non-negative number", utils.ErrValidation)
		}
	}
	if v := get("rating"); v != "" {
		if form.Rating, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("%w: rating must be a number", utils.ErrValidation)
		}
	}
	if v := get("numReviews"); v != "" {
		if form.NumReviews, err = strconv.Atoi(v); err != nil || form.NumReviews < 0 {
			return nil, fmt.Errorf("%w: numReviews must be a non-negative integer", utils.ErrValidation)
		}
	}
	if v := get("isFeatured"); v != "" {
		if form.IsFeatured, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("%w: isFeatured must be a boolean", utils.ErrValidation)
		}
	}
	return form, nil
}

func (f *productForm) apply(p *models.Product) {
	p.Name = f.Name
	p.Description = f.Description
	p.RichDescription = f.RichDescription
	p.Brand = f.Brand
	p.Price = f.Price
	p.CategoryID = f.CategoryID
	p.CountInStock = f.CountInStock
	p.Rating = f.Rating
	p.NumReviews = f.NumReviews
	p.IsFeatured = f.IsFeatured
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// populate renders products with their category documents.
func (pc *ProductController) populate(ctx context.Context, products []models.Product) ([]models.ProductView, error) {
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.CategoryID)
	}
	categories, err := pc.Categories.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	views := make([]models.ProductView, len(products))
	for i, p := range products {
		views[i] = p.View(byID[p.CategoryID])
	}
	return views, nil
}

func (pc *ProductController) writeProducts(ctx context.Context, w http.ResponseWriter, products []models.Product) {
	views, err := pc.populate(ctx, products)
	if err != nil {
		pc.Log.WithError(err).Error("Populate product categories failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error fetching products")
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

// GetProducts lists products, optionally filtered by ?categories=id1,id2
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	var filter store.ProductFilter
	if raw := r.URL.Query().Get("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := primitive.ObjectIDFromHex(strings.TrimSpace(part))
			if err != nil {
				utils.WriteMessage(w, http.StatusBadRequest, "invalid category id "+part)
				return
			}
			filter.CategoryIDs = append(filter.CategoryIDs, id)
		}
	}
	pc.listProducts(w, r, filter)
}

// GetAllProducts lists every product
func (pc *ProductController) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	pc.listProducts(w, r, store.ProductFilter{})
}

// GetFeaturedProducts lists at most {count} featured products; 0 means no cap
func (pc *ProductController) GetFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.ParseInt(mux.Vars(r)["count"], 10, 64)
	if err != nil || count < 0 {
		utils.WriteMessage(w, http.StatusBadRequest, "count must be a non-negative integer")
		return
	}

	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	products, err := pc.Products.List(ctx, store.ProductFilter{FeaturedOnly: true, Limit: count})
	if err != nil {
		pc.Log.WithError(err).Error("List featured products failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error fetching products")
		return
	}
	views := make([]models.ProductView, len(products))
	for i, p := range products {
		views[i] = p.View(nil)
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

func (pc *ProductController) listProducts(w http.ResponseWriter, r *http.Request, filter store.ProductFilter) {
	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	products, err := pc.Products.List(ctx, filter)
	if err != nil {
		pc.Log.WithError(err).Error("List products failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error fetching products")
		return
	}
	pc.writeProducts(ctx, w, products)
}

// GetProductByID retrieves a single product by ID
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	product, err := pc.Products.FindByID(ctx, id)
	if err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).Error("Find product failed")
		}
		utils.WriteError(w, err, "No Product Found")
		return
	}

	category, err := pc.Categories.FindByID(ctx, product.CategoryID)
	if err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).WithField("product_id", id.Hex()).Error("Find product category failed")
		}
		category = nil
	}
	utils.WriteJSON(w, http.StatusOK, product.View(category))
}

// removeImages deletes stored image files; failures are only logged.
func (pc *ProductController) removeImages(fileNames ...string) {
	for _, name := range fileNames {
		if err := pc.Images.Remove(name); err != nil {
			pc.Log.WithError(err).WithField("file", name).Warn("Remove product image failed")
		}
	}
}

// checkCategory resolves the form's category reference.
func (pc *ProductController) checkCategory(ctx context.Context, w http.ResponseWriter, id primitive.ObjectID) bool {
	if _, err := pc.Categories.FindByID(ctx, id); err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).Error("Find category failed")
			http.Error(w, "Error checking category", http.StatusInternalServerError)
			return false
		}
		http.Error(w, "Invalid Category", http.StatusBadRequest)
		return false
	}
	return true
}

func (pc *ProductController) writeFormError(w http.ResponseWriter, err error) {
	http.Error(w, strings.TrimPrefix(err.Error(), utils.ErrValidation.Error()+": "), utils.StatusFor(err))
}

// CreateProduct adds a new product from a multipart form with one "image" file
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(r)
	if err != nil {
		pc.writeFormError(w, err)
		return
	}

	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	if !pc.checkCategory(ctx, w, form.CategoryID) {
		return
	}

	file := formFile(r, "image")
	if file == nil {
		http.Error(w, "No image in the request", http.StatusBadRequest)
		return
	}
	fileName, err := pc.Images.Save(file)
	if err != nil {
		pc.Log.WithError(err).Warn("Save product image failed")
		http.Error(w, err.Error(), utils.StatusFor(err))
		return
	}

	product := &models.Product{
		Image:       utils.ImageURL(r, fileName),
		Images:      []string{},
		DateCreated: time.Now(),
	}
	form.apply(product)

	if err := pc.Products.Insert(ctx, product); err != nil {
		pc.Log.WithError(err).Error("Insert product failed")
		pc.removeImages(fileName)
		http.Error(w, "The product cannot be created", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, product.View(nil))
}

// UpdateProduct replaces a product; the stored image is kept when no new one is sent
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	form, err := parseProductForm(r)
	if err != nil {
		pc.writeFormError(w, err)
		return
	}

	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	if !pc.checkCategory(ctx, w, form.CategoryID) {
		return
	}

	product, err := pc.Products.FindByID(ctx, id)
	if err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).Error("Find product failed")
		}
		http.Error(w, "The product with the given ID was not Found", utils.StatusFor(err))
		return
	}

	oldImage, newFile := product.Image, ""
	if file := formFile(r, "image"); file != nil {
		fileName, err := pc.Images.Save(file)
		if err != nil {
			pc.Log.WithError(err).Warn("Save product image failed")
			http.Error(w, err.Error(), utils.StatusFor(err))
			return
		}
		newFile = fileName
		product.Image = utils.ImageURL(r, fileName)
	}
	form.apply(product)

	if err := pc.Products.Replace(ctx, product); err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).Error("Replace product failed")
		}
		if newFile != "" {
			pc.removeImages(newFile)
		}
		http.Error(w, "The product cannot be updated", utils.StatusFor(err))
		return
	}
	if newFile != "" && oldImage != "" {
		pc.removeImages(path.Base(oldImage))
	}
	utils.WriteJSON(w, http.StatusOK, product.View(nil))
}

// UpdateGalleryImages replaces a product's gallery with up to ten uploaded "images"
func (pc *ProductController) UpdateGalleryImages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["images"]
	}
	if len(files) > maxGalleryImages {
		http.Error(w, fmt.Sprintf("at most %d images are accepted", maxGalleryImages), http.StatusBadRequest)
		return
	}

	imagePaths := make([]string, 0, len(files))
	saved := make([]string, 0, len(files))
	for _, fh := range files {
		fileName, err := pc.Images.Save(fh)
		if err != nil {
			pc.Log.WithError(err).Warn("Save gallery image failed")
			pc.removeImages(saved...)
			http.Error(w, err.Error(), utils.StatusFor(err))
			return
		}
		saved = append(saved, fileName)
		imagePaths = append(imagePaths, utils.ImageURL(r, fileName))
	}

	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	product, err := pc.Products.SetImages(ctx, id, imagePaths)
	if err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).Error("Update product gallery failed")
		}
		pc.removeImages(saved...)
		http.Error(w, "The product image gallery cannot be updated", utils.StatusFor(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, product.View(nil))
}

// DeleteProduct removes a product
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	if err := pc.Products.Delete(ctx, id); err != nil {
		if !store.IsNotFound(err) {
			pc.Log.WithError(err).Error("Delete product failed")
		}
		utils.WriteError(w, err, "product not found")
		return
	}
	utils.WriteMessage(w, http.StatusOK, "the product is deleted")
}

// CountProducts returns the number of products
func (pc *ProductController) CountProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, pc.Timeout)
	defer cancel()

	n, err := pc.Products.Count(ctx)
	if err != nil {
		pc.Log.WithError(err).Error("Count products failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error counting products")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"productCount": n})
}
