package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/models"
	"github.com/andikasp/mejaqr/realtime"
	"github.com/andikasp/mejaqr/utils"
)

// StreamController menjembatani hub propagasi ke koneksi websocket.
// Tidak ada catch-up log: client yang sempat putus wajib re-fetch
// state penuh begitu reconnect, bukan menunggu backfill event.
type StreamController struct {
	DB *gorm.DB
}

func NewStreamController(db *gorm.DB) *StreamController {
	return &StreamController{DB: db}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin dicek oleh middleware CORS di depan
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamSession -> stream event untuk tamu di satu meja. Device ikut
// menerima perubahan dari device lain di meja yang sama.
func (sc *StreamController) StreamSession(c *gin.Context) {
	token := c.Param("token")

	var node models.TableNode
	if err := sc.DB.Where("access_token = ?", token).First(&node).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	var session models.Session
	if err := sc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	sc.streamTopic(c, realtime.SessionTopic(session.ID))
}

// StreamVenue -> stream event untuk console staff, mencakup semua meja
func (sc *StreamController) StreamVenue(c *gin.Context) {
	venueIDParam := c.Param("venue_id")

	// Staff hanya boleh stream venue miliknya sendiri. Klaim yang
	// tidak terbaca ditolak, bukan dilewati.
	claimVenue, exists := c.Get("venue_id")
	vid, ok := claimVenue.(uint)
	if !exists || !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("venue claim missing"))
		return
	}
	if venueIDParam != strconv.FormatUint(uint64(vid), 10) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	venueID, err := strconv.ParseUint(venueIDParam, 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid venue id"))
		return
	}

	sc.streamTopic(c, realtime.VenueTopic(uint(venueID)))
}

// streamTopic -> upgrade koneksi dan pompa event sampai salah satu
// sisi menutup. Subscription dilepas saat handler return.
func (sc *StreamController) streamTopic(c *gin.Context, topic string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	sub := realtime.Subscribe(topic)
	defer sub.Close()
	defer conn.Close()

	utils.InfoLogger.Printf("Client subscribed to %s", topic)

	// Read loop hanya untuk mendeteksi close dari client
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				utils.InfoLogger.Printf("Client on %s disconnected: %v", topic, err)
				return
			}
		case <-done:
			return
		}
	}
}
