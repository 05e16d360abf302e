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

func setupSessionRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	sessionCtrl := controllers.NewSessionController(db)
	router.POST("/tables/:token/session", sessionCtrl.EnsureActiveSession)
	router.POST("/tables/:token/session/verify", sessionCtrl.VerifySession)
	router.POST("/sessions/:session_id/rotate-pin", sessionCtrl.RotatePin)
	router.PATCH("/sessions/:session_id/pin-required", sessionCtrl.TogglePinRequirement)
	router.POST("/sessions/:session_id/reset", sessionCtrl.TerminateAndReset)
	router.POST("/sessions/:session_id/end", sessionCtrl.EndSession)
	return router
}

func TestEnsureActiveSessionCreatesThenConverges(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "T7")
	router := setupSessionRouter(db)

	// Device pertama: sesi baru dibuat
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/tables/"+node.AccessToken+"/session", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	data := created["data"].(map[string]interface{})
	pin := data["pin"].(string)
	assert.Len(t, pin, 4)
	sessionData := data["session"].(map[string]interface{})
	firstID := uint(sessionData["id"].(float64))

	// Device kedua di meja yang sama: konvergen ke sesi yang sama
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/tables/"+node.AccessToken+"/session", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var joined map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	joinedSession := joined["data"].(map[string]interface{})
	assert.Equal(t, firstID, uint(joinedSession["id"].(float64)))

	// Invariant: maksimal satu sesi aktif per meja
	var activeCount int64
	db.Model(&models.Session{}).
		Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		Count(&activeCount)
	assert.Equal(t, int64(1), activeCount)
}

func TestEnsureActiveSessionUnknownTable(t *testing.T) {
	db := setupTestDB()
	router := setupSessionRouter(db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/tables/no-such-token/session", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifySession(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "A1")
	seedActiveSession(db, node, "4821")
	router := setupSessionRouter(db)

	verify := func(body map[string]string) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(body)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/tables/"+node.AccessToken+"/session/verify", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	// PIN benar
	w := verify(map[string]string{"pin": "4821"})
	assert.Equal(t, http.StatusOK, w.Code)

	// PIN salah: tidak ada lockout, hanya verified=false
	w = verify(map[string]string{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["data"].(map[string]interface{})["verified"])

	// Format PIN tidak valid
	w = verify(map[string]string{"pin": "abcd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifySessionPinNotRequired(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "B2")
	session := seedActiveSession(db, node, "1111")
	db.Model(&session).Update("pin_required", false)
	router := setupSessionRouter(db)

	// PIN apapun lolos kalau proteksi dimatikan
	payload, _ := json.Marshal(map[string]string{"pin": ""})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/tables/"+node.AccessToken+"/session/verify", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRotatePin(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "C3")
	session := seedActiveSession(db, node, "4821")
	router := setupSessionRouter(db)

	w := httptest.NewRecorder()
	url := fmt.Sprintf("/sessions/%d/rotate-pin", session.ID)
	req, _ := http.NewRequest("POST", url, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Session
	db.First(&updated, session.ID)
	assert.Len(t, updated.VerificationCode, 4)
	// Sesi tetap aktif, hanya PIN yang berganti
	assert.Equal(t, models.SessionActive, updated.Status)
}

func TestTogglePinRequirement(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "D4")
	session := seedActiveSession(db, node, "4821")
	router := setupSessionRouter(db)

	payload, _ := json.Marshal(map[string]interface{}{"required": false})
	w := httptest.NewRecorder()
	url := fmt.Sprintf("/sessions/%d/pin-required", session.ID)
	req, _ := http.NewRequest("PATCH", url, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Session
	db.First(&updated, session.ID)
	assert.False(t, updated.PinRequired)
}

func TestTerminateAndReset(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "T7")
	old := seedActiveSession(db, node, "4821")
	router := setupSessionRouter(db)

	w := httptest.NewRecorder()
	url := fmt.Sprintf("/sessions/%d/reset", old.ID)
	req, _ := http.NewRequest("POST", url, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Sesi lama berakhir dengan ended_at terisi
	var ended models.Session
	db.First(&ended, old.ID)
	assert.Equal(t, models.SessionEnded, ended.Status)
	assert.NotNil(t, ended.EndedAt)

	// Sesi baru aktif dengan PIN berbeda, tanpa jeda tanpa sesi
	var fresh models.Session
	err := db.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&fresh).Error
	assert.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.NotEqual(t, "4821", fresh.VerificationCode)

	// Tetap maksimal satu sesi aktif
	var activeCount int64
	db.Model(&models.Session{}).
		Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		Count(&activeCount)
	assert.Equal(t, int64(1), activeCount)

	// PIN lama tidak bisa verifikasi lagi
	payload, _ := json.Marshal(map[string]string{"pin": "4821"})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/tables/"+node.AccessToken+"/session/verify", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if fresh.VerificationCode != "4821" {
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestEndSessionWithoutReplacement(t *testing.T) {
	db := setupTestDB()
	node := seedTableNode(db, "E5")
	session := seedActiveSession(db, node, "4821")
	router := setupSessionRouter(db)

	w := httptest.NewRecorder()
	url := fmt.Sprintf("/sessions/%d/end", session.ID)
	req, _ := http.NewRequest("POST", url, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var activeCount int64
	db.Model(&models.Session{}).
		Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		Count(&activeCount)
	assert.Equal(t, int64(0), activeCount)

	// Operasi staf pada sesi yang sudah berakhir -> SessionNotFound
	w = httptest.NewRecorder()
	url = fmt.Sprintf("/sessions/%d/rotate-pin", session.ID)
	req, _ = http.NewRequest("POST", url, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
