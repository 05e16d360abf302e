package Controllers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/controllers"
)

func setupStreamRouter(db *gorm.DB, claims gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	if claims != nil {
		router.Use(claims)
	}
	streamCtrl := controllers.NewStreamController(db)
	router.GET("/venues/:venue_id/stream", streamCtrl.StreamVenue)
	return router
}

func TestStreamVenueRejectsMissingClaim(t *testing.T) {
	db := setupTestDB()
	router := setupStreamRouter(db, nil)

	// Tanpa klaim venue di context: ditolak, bukan dilewati
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/venues/1/stream", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStreamVenueRejectsOtherVenue(t *testing.T) {
	db := setupTestDB()
	router := setupStreamRouter(db, func(c *gin.Context) {
		c.Set("venue_id", uint(2))
		c.Next()
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/venues/1/stream", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
