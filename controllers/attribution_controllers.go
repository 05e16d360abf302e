package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/models"
	"github.com/andikasp/mejaqr/utils"
)

// AttributionController -> proyeksi baca murni di atas order sebuah
// sesi. Atribusi device tidak disimpan sebagai relasi terpisah: device
// identity adalah konsep lunak milik browser, jadi pembagian mine/group
// dihitung ulang dari baris order setiap kali dibaca. Device yang
// kehilangan identitas lokalnya hanya berpindah ke sisi group, tanpa
// inkonsistensi apa pun.
type AttributionController struct {
	DB *gorm.DB
}

func NewAttributionController(db *gorm.DB) *AttributionController {
	return &AttributionController{DB: db}
}

// PartitionOrders -> bagi order sesi ini jadi "punya saya" vs "punya
// meja" berdasarkan device id peminta
func (ac *AttributionController) PartitionOrders(c *gin.Context) {
	token := c.Param("token")
	deviceID := c.Query("device_id")
	if deviceID == "" {
		deviceID = c.GetHeader("X-Device-Id")
	}

	var node models.TableNode
	if err := ac.DB.Where("access_token = ?", token).First(&node).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	var session models.Session
	if err := ac.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	var orders []models.Order
	if err := ac.DB.Preload("MenuItem").
		Where("session_id = ?", session.ID).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mine := make([]models.Order, 0)
	group := make([]models.Order, 0)
	for _, order := range orders {
		if deviceID != "" && order.DeviceID == deviceID {
			mine = append(mine, order)
		} else {
			group = append(group, order)
		}
	}

	utils.RespondJSON(c, http.StatusOK, "Session orders", gin.H{
		"session_id": session.ID,
		"mine":       mine,
		"group":      group,
	})
}

// GetParticipants -> nama customer unik di sesi ini, untuk staff
// melihat siapa saja yang sedang memesan di satu meja
func (ac *AttributionController) GetParticipants(c *gin.Context) {
	sessionID := c.Param("session_id")

	var names []string
	if err := ac.DB.Model(&models.Order{}).
		Where("session_id = ? AND customer_name != ''", sessionID).
		Distinct().
		Pluck("customer_name", &names).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session participants", gin.H{
		"participants": names,
		"count":        len(names),
	})
}

// GetRunningTotal -> total berjalan meja, independen dari status
// pembayaran: tagihan yang belum dibayar tetap masuk total
func (ac *AttributionController) GetRunningTotal(c *gin.Context) {
	sessionID := c.Param("session_id")

	var total float64
	if err := ac.DB.Model(&models.Order{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(SUM(quantity * price), 0)").
		Row().Scan(&total); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Running total", gin.H{
		"total":           total,
		"total_formatted": utils.FormatCurrencyIDR(total),
	})
}
