package controllers

import (
	"net/http"
	"time"

	"eshop/models"
	"eshop/store"
	"eshop/utils"

	"github.com/sirupsen/logrus"
)

// CategoryController handles category-related requests
type CategoryController struct {
	Categories store.CategoryStore
	Log        logrus.FieldLogger
	Timeout    time.Duration
}

// NewCategoryController creates a new CategoryController
func NewCategoryController(categories store.CategoryStore, logger logrus.FieldLogger, timeout time.Duration) *CategoryController {
	return &CategoryController{Categories: categories, Log: logger, Timeout: timeout}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (req categoryRequest) validate() error {
	return requireFields(map[string]string{"name": req.Name})
}

// GetCategories lists every category
func (cc *CategoryController) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, cc.Timeout)
	defer cancel()

	categories, err := cc.Categories.List(ctx)
	if err != nil {
		cc.Log.WithError(err).Error("List categories failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error fetching categories")
		return
	}
	utils.WriteJSON(w, http.StatusOK, categories)
}

// GetCategoryByID retrieves a single category by ID
func (cc *CategoryController) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid category id")
		return
	}

	ctx, cancel := withTimeout(r, cc.Timeout)
	defer cancel()

	category, err := cc.Categories.FindByID(ctx, id)
	if err != nil {
		if !store.IsNotFound(err) {
			cc.Log.WithError(err).Error("Find category failed")
		}
		utils.WriteError(w, err, "The category with the given ID was not Found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, category)
}

// CreateCategory adds a new category
func (cc *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, "Invalid input")
		return
	}
	if err := req.validate(); err != nil {
		utils.WriteError(w, err, err.Error())
		return
	}

	ctx, cancel := withTimeout(r, cc.Timeout)
	defer cancel()

	category := &models.Category{Name: req.Name, Icon: req.Icon, Color: req.Color}
	if err := cc.Categories.Insert(ctx, category); err != nil {
		cc.Log.WithError(err).Error("Insert category failed")
		http.Error(w, "the category cannot be created!", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, category)
}

// UpdateCategory replaces the category with the given ID
func (cc *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, "Invalid input")
		return
	}
	if err := req.validate(); err != nil {
		utils.WriteError(w, err, err.Error())
		return
	}

	ctx, cancel := withTimeout(r, cc.Timeout)
	defer cancel()

	category := &models.Category{ID: id, Name: req.Name, Icon: req.Icon, Color: req.Color}
	if err := cc.Categories.Replace(ctx, category); err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "The category with the given ID was not Found", http.StatusNotFound)
			return
		}
		cc.Log.WithError(err).Error("Replace category failed")
		http.Error(w, "Error updating category", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, category)
}

// DeleteCategory removes the category with the given ID. Products keep their reference.
func (cc *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err, "invalid category id")
		return
	}

	ctx, cancel := withTimeout(r, cc.Timeout)
	defer cancel()

	if err := cc.Categories.Delete(ctx, id); err != nil {
		if !store.IsNotFound(err) {
			cc.Log.WithError(err).Error("Delete category failed")
		}
		utils.WriteError(w, err, "category not found")
		return
	}
	utils.WriteMessage(w, http.StatusOK, "the category is deleted")
}

// CountCategories returns the number of categories
func (cc *CategoryController) CountCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, cc.Timeout)
	defer cancel()

	n, err := cc.Categories.Count(ctx)
	if err != nil {
		cc.Log.WithError(err).Error("Count categories failed")
		utils.WriteMessage(w, http.StatusInternalServerError, "Error counting categories")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"categoryCount": n})
}
