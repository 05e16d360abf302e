package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/models"
	"github.com/andikasp/mejaqr/realtime"
	"github.com/andikasp/mejaqr/utils"
)

type SessionController struct {
	DB *gorm.DB
}

func NewSessionController(db *gorm.DB) *SessionController {
	return &SessionController{DB: db}
}

var pinFormat = regexp.MustCompile(`^[0-9]{4}$`)

// EnsureActiveSession -> kembalikan sesi aktif untuk meja ini, buat
// baru kalau belum ada. Aman terhadap dua device yang scan QR
// bersamaan: unique index (table_node_id, active_flag) membuat hanya
// satu Create yang menang; yang kalah membaca ulang baris pemenang.
func (sc *SessionController) EnsureActiveSession(c *gin.Context) {
	node, ok := sc.resolveNode(c)
	if !ok {
		return
	}

	var session models.Session
	err := sc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&session).Error
	if err == nil {
		utils.RespondJSON(c, http.StatusOK, "Active session", session)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	one := uint(1)
	session = models.Session{
		TableNodeID:      node.ID,
		Status:           models.SessionActive,
		ActiveFlag:       &one,
		VerificationCode: utils.GeneratePin(),
		PinRequired:      true,
		StartedAt:        time.Now(),
	}

	if err := sc.DB.Create(&session).Error; err != nil {
		// Kalah race dengan device lain di meja yang sama; konvergen
		// ke sesi milik pemenang.
		if err := sc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
			First(&session).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Active session", session)
		return
	}

	realtime.PublishSessionChange(realtime.KindCreated, session, node.VenueID)

	utils.InfoLogger.Printf("New session %d started at table %s", session.ID, node.Label)
	utils.RespondJSON(c, http.StatusCreated, "Session started", gin.H{
		"session": session,
		"pin":     session.VerificationCode,
	})
}

// VerifySession -> cek PIN yang diketik tamu. Tidak ada lockout di
// sini; throttling hanya berlaku untuk login staff.
func (sc *SessionController) VerifySession(c *gin.Context) {
	node, ok := sc.resolveNode(c)
	if !ok {
		return
	}

	var body struct {
		Pin string `json:"pin"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var session models.Session
	if err := sc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	if !session.PinRequired {
		utils.RespondJSON(c, http.StatusOK, "Session verified", gin.H{
			"verified":   true,
			"session_id": session.ID,
		})
		return
	}

	if !pinFormat.MatchString(body.Pin) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("pin must be 4 digits"))
		return
	}

	if body.Pin != session.VerificationCode {
		utils.RespondJSON(c, http.StatusUnauthorized, "Wrong PIN", gin.H{
			"verified": false,
		})
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session verified", gin.H{
		"verified":   true,
		"session_id": session.ID,
	})
}

// RotatePin -> staff regenerate PIN tanpa mengakhiri sesi
func (sc *SessionController) RotatePin(c *gin.Context) {
	session, ok := sc.activeSessionByID(c)
	if !ok {
		return
	}

	session.VerificationCode = utils.GeneratePin()
	if err := sc.DB.Save(&session).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	sc.publishSession(realtime.KindUpdated, session)

	utils.InfoLogger.Printf("PIN rotated for session %d", session.ID)
	utils.RespondJSON(c, http.StatusOK, "PIN rotated", gin.H{
		"session_id": session.ID,
		"pin":        session.VerificationCode,
	})
}

// TogglePinRequirement -> staff menyalakan / mematikan proteksi PIN
func (sc *SessionController) TogglePinRequirement(c *gin.Context) {
	session, ok := sc.activeSessionByID(c)
	if !ok {
		return
	}

	var body struct {
		Required *bool `json:"required" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session.PinRequired = *body.Required
	if err := sc.DB.Save(&session).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	sc.publishSession(realtime.KindUpdated, session)

	utils.RespondJSON(c, http.StatusOK, "PIN requirement updated", session)
}

// TerminateAndReset -> akhiri sesi lama dan langsung mulai sesi baru
// untuk meja yang sama dalam satu transaksi. Dipakai saat meja ganti
// tamu: PIN lama mati seketika, meja langsung bisa dipakai tamu baru,
// dan tidak pernah ada jeda tanpa sesi aktif yang bisa teramati.
func (sc *SessionController) TerminateAndReset(c *gin.Context) {
	session, ok := sc.activeSessionByID(c)
	if !ok {
		return
	}

	now := time.Now()
	one := uint(1)
	fresh := models.Session{
		TableNodeID:      session.TableNodeID,
		Status:           models.SessionActive,
		ActiveFlag:       &one,
		VerificationCode: utils.GeneratePin(),
		PinRequired:      true,
		StartedAt:        now,
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		session.Status = models.SessionEnded
		session.EndedAt = &now
		session.ActiveFlag = nil
		if err := tx.Save(&session).Error; err != nil {
			return err
		}
		return tx.Create(&fresh).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	sc.publishSession(realtime.KindUpdated, session)
	sc.publishSession(realtime.KindCreated, fresh)

	utils.InfoLogger.Printf("Session %d ended, session %d started at node %d",
		session.ID, fresh.ID, session.TableNodeID)
	utils.RespondJSON(c, http.StatusOK, "Table reset", gin.H{
		"ended_session": session,
		"new_session":   fresh,
		"pin":           fresh.VerificationCode,
	})
}

// EndSession -> akhiri sesi tanpa pengganti (clear table manual)
func (sc *SessionController) EndSession(c *gin.Context) {
	session, ok := sc.activeSessionByID(c)
	if !ok {
		return
	}

	now := time.Now()
	session.Status = models.SessionEnded
	session.EndedAt = &now
	session.ActiveFlag = nil
	if err := sc.DB.Save(&session).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	sc.publishSession(realtime.KindUpdated, session)

	utils.InfoLogger.Printf("Session %d ended", session.ID)
	utils.RespondJSON(c, http.StatusOK, "Session ended", session)
}

// GetSessionDetail -> detail sesi untuk console staff, termasuk PIN
func (sc *SessionController) GetSessionDetail(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.Session
	if err := sc.DB.Preload("TableNode").First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session detail", gin.H{
		"session": session,
		"table":   session.TableNode,
		"pin":     session.VerificationCode,
	})
}

// GetActiveSessions -> semua sesi aktif satu venue untuk console staff
func (sc *SessionController) GetActiveSessions(c *gin.Context) {
	venueID := c.Param("venue_id")

	var sessions []models.Session
	if err := sc.DB.Preload("TableNode").
		Select("sessions.*").
		Joins("JOIN table_nodes ON table_nodes.id = sessions.table_node_id").
		Where("table_nodes.venue_id = ? AND sessions.status = ?", venueID, models.SessionActive).
		Find(&sessions).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Active sessions", sessions)
}

// resolveNode -> cari TableNode dari access token di path tamu
func (sc *SessionController) resolveNode(c *gin.Context) (models.TableNode, bool) {
	token := c.Param("token")

	var node models.TableNode
	if err := sc.DB.Where("access_token = ?", token).First(&node).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return node, false
	}
	return node, true
}

// activeSessionByID -> ambil sesi by id; operasi staf hanya valid
// terhadap sesi yang masih aktif (SessionNotFound kalau tidak)
func (sc *SessionController) activeSessionByID(c *gin.Context) (models.Session, bool) {
	sessionID := c.Param("session_id")

	var session models.Session
	if err := sc.DB.First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return session, false
	}
	if !session.IsActive() {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return session, false
	}
	return session, true
}

func (sc *SessionController) publishSession(kind string, session models.Session) {
	var node models.TableNode
	if err := sc.DB.First(&node, session.TableNodeID).Error; err != nil {
		// Propagasi tidak boleh menggagalkan mutasi yang sudah commit
		utils.ErrorLogger.Printf("publishSession: node lookup failed: %v", err)
		return
	}
	realtime.PublishSessionChange(kind, session, node.VenueID)
}

var (
	ErrSessionNotFound = &CustomError{"No active session for this table"}
	ErrSessionConflict = &CustomError{"Session is no longer active"}
	ErrSessionInactive = &CustomError{"Table has no active session"}
)
