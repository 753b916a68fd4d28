package handlers

import (
	"net/http"
	"strconv"

	catalogRepo "tably/database/repository/catalog"
	"tably/models"
	"tably/services/availability"
	"tably/services/catalog"
	"tably/utils"

	"github.com/gin-gonic/gin"
)

// SearchRestaurants filters the catalog by query parameters.
func (hb *HandlerBundle) SearchRestaurants(c *gin.Context) {
	filter := catalogRepo.Filter{
		Cuisine:  c.Query("cuisine"),
		Location: c.Query("location"),
		Price:    models.PriceTier(c.Query("price")),
		Features: c.QueryArray("feature"),
	}
	results, err := hb.Catalog.Search(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": results})
}

// GetRestaurant returns one catalog record.
func (hb *HandlerBundle) GetRestaurant(c *gin.Context) {
	r, err := hb.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// GetRestaurantAvailability lists free slots for a restaurant.
func (hb *HandlerBundle) GetRestaurantAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "date is required (YYYY-MM-DD)")
		return
	}
	partySize, err := strconv.Atoi(c.DefaultQuery("party_size", "2"))
	if err != nil || partySize < 1 {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "party_size must be a positive integer")
		return
	}

	slots, err := hb.Engine.FindSlots(c.Request.Context(), c.Param("id"), date,
		availability.TimeWindow{From: c.Query("time_from"), To: c.Query("time_to")}, partySize)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// RecommendRestaurants ranks the catalog against explicit preferences.
func (hb *HandlerBundle) RecommendRestaurants(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	prefs := catalog.Preferences{
		Location: c.Query("location"),
		Price:    models.PriceTier(c.Query("price")),
		Occasion: c.Query("occasion"),
	}
	if cuisine := c.Query("cuisine"); cuisine != "" {
		prefs.Cuisines = []string{cuisine}
	}
	recs, err := hb.Catalog.Recommend(c.Request.Context(), prefs, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// CreateRestaurant adds a catalog record (administrative).
func (hb *HandlerBundle) CreateRestaurant(c *gin.Context) {
	var r models.Restaurant
	if err := c.ShouldBindJSON(&r); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := hb.Catalog.Create(c.Request.Context(), &r); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateRestaurant replaces a catalog record (administrative).
func (hb *HandlerBundle) UpdateRestaurant(c *gin.Context) {
	var r models.Restaurant
	if err := c.ShouldBindJSON(&r); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	r.ID = c.Param("id")
	if err := hb.Catalog.Update(c.Request.Context(), &r); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteRestaurant removes a catalog record (administrative).
func (hb *HandlerBundle) DeleteRestaurant(c *gin.Context) {
	if err := hb.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
