package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/controllers"
	"github.com/andikasp/mejaqr/models"
)

func setupTableNodeRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	tableCtrl := controllers.NewTableNodeController(db)
	router.POST("/venues/:venue_id/tables", tableCtrl.CreateTableNode)
	router.GET("/venues/:venue_id/tables", tableCtrl.GetAllTableNodes)
	router.GET("/venues/:venue_id/stats", tableCtrl.GetDashboardStats)
	router.GET("/tables/:token", tableCtrl.ResolveTableNode)
	router.PATCH("/table-nodes/:node_id", tableCtrl.UpdateTableNode)
	router.DELETE("/table-nodes/:node_id", tableCtrl.DeleteTableNode)
	return router
}

func TestCreateTableNode(t *testing.T) {
	db := setupTestDB()
	router := setupTableNodeRouter(db)

	payload, _ := json.Marshal(map[string]string{"label": "12"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/venues/1/tables", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var node models.TableNode
	assert.NoError(t, db.Where("label = ?", "12").First(&node).Error)
	// Access token isi QR code, di-generate server
	assert.NotEmpty(t, node.AccessToken)
	assert.Equal(t, uint(1), node.VenueID)
}

func TestGetAllTableNodesWithOccupancy(t *testing.T) {
	db := setupTestDB()
	free := seedTableNode(db, "1")
	busy := seedTableNode(db, "2")
	seedActiveSession(db, busy, "1111")
	router := setupTableNodeRouter(db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/venues/1/tables", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	tables := resp["data"].([]interface{})
	assert.Len(t, tables, 2)

	occupancy := map[string]bool{}
	for _, raw := range tables {
		tbl := raw.(map[string]interface{})
		occupancy[tbl["label"].(string)] = tbl["occupied"].(bool)
	}
	assert.False(t, occupancy[free.Label])
	assert.True(t, occupancy[busy.Label])
}

func TestResolveTableNodeGuestBootstrap(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "5")
	session := seedActiveSession(db, node, "4821")
	router := setupTableNodeRouter(db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tables/"+node.AccessToken, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["has_session"])
	assert.Equal(t, float64(session.ID), data["session_id"])
	assert.Equal(t, true, data["pin_required"])
	// PIN sendiri tidak pernah bocor lewat bootstrap tamu
	_, exposed := data["pin"]
	assert.False(t, exposed)
}

func TestDeleteTableNodePurgesHistory(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "9")
	session := seedActiveSession(db, node, "4821")
	item := seedMenuItem(db, "Kopi", 10000)
	seedOrder(db, session, item, "A", "Budi", 1)
	router := setupTableNodeRouter(db)

	w := httptest.NewRecorder()
	url := fmt.Sprintf("/table-nodes/%d", node.ID)
	req, _ := http.NewRequest("DELETE", url, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var sessions, orders int64
	db.Model(&models.Session{}).Where("table_node_id = ?", node.ID).Count(&sessions)
	db.Model(&models.Order{}).Where("session_id = ?", session.ID).Count(&orders)
	assert.Equal(t, int64(0), sessions)
	assert.Equal(t, int64(0), orders)
}

func TestDashboardStats(t *testing.T) {
	db := setupTestDB()
	seedTableNode(db, "1")
	busy := seedTableNode(db, "2")
	seedActiveSession(db, busy, "1111")
	router := setupTableNodeRouter(db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/venues/1/stats", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(1), data["occupied"])
	assert.Equal(t, float64(1), data["available"])
}
