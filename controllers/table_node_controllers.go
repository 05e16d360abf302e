package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/models"
	"github.com/andikasp/mejaqr/realtime"
	"github.com/andikasp/mejaqr/utils"
)

type TableNodeController struct {
	DB *gorm.DB
}

func NewTableNodeController(db *gorm.DB) *TableNodeController {
	return &TableNodeController{DB: db}
}

// CreateTableNode -> staff provisioning meja baru; access token opaque
// di-generate server dan jadi isi QR code
func (tc *TableNodeController) CreateTableNode(c *gin.Context) {
	venueID, err := strconv.Atoi(c.Param("venue_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid venue id"))
		return
	}

	var req struct {
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	node := models.TableNode{
		Label:       req.Label,
		AccessToken: utils.GenerateAccessToken(),
		VenueID:     uint(venueID),
	}
	if err := tc.DB.Create(&node).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	stats := tc.getDashboardStats(node.VenueID)
	realtime.Publish(realtime.VenueTopic(node.VenueID), realtime.Event{
		Kind:   realtime.KindCreated,
		Entity: realtime.EntityTable,
		Payload: gin.H{
			"table": node,
			"stats": stats,
		},
	})

	utils.InfoLogger.Printf("New table created: %s (venue=%d)", node.Label, node.VenueID)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", node)
}

// GetAllTableNodes -> daftar meja satu venue + status okupansi
func (tc *TableNodeController) GetAllTableNodes(c *gin.Context) {
	venueID := c.Param("venue_id")

	var nodes []models.TableNode
	if err := tc.DB.Where("venue_id = ?", venueID).Find(&nodes).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	type nodeView struct {
		models.TableNode
		Occupied  bool  `json:"occupied"`
		SessionID *uint `json:"session_id,omitempty"`
	}

	views := make([]nodeView, 0, len(nodes))
	for _, node := range nodes {
		view := nodeView{TableNode: node}
		var session models.Session
		if err := tc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
			First(&session).Error; err == nil {
			view.Occupied = true
			view.SessionID = &session.ID
		}
		views = append(views, view)
	}

	utils.RespondJSON(c, http.StatusOK, "List of tables", views)
}

// ResolveTableNode -> bootstrap tamu setelah scan QR: label meja,
// ada/tidaknya sesi aktif, dan perlu/tidaknya PIN (tanpa PIN-nya)
func (tc *TableNodeController) ResolveTableNode(c *gin.Context) {
	token := c.Param("token")

	var node models.TableNode
	if err := tc.DB.Where("access_token = ?", token).First(&node).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	resp := gin.H{
		"label":       node.Label,
		"venue_id":    node.VenueID,
		"has_session": false,
	}

	var session models.Session
	if err := tc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&session).Error; err == nil {
		resp["has_session"] = true
		resp["session_id"] = session.ID
		resp["pin_required"] = session.PinRequired
	}

	utils.RespondJSON(c, http.StatusOK, "Table detail", resp)
}

// UpdateTableNode -> ganti label meja
func (tc *TableNodeController) UpdateTableNode(c *gin.Context) {
	nodeID := c.Param("node_id")

	var req struct {
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var node models.TableNode
	if err := tc.DB.First(&node, nodeID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	node.Label = req.Label
	if err := tc.DB.Save(&node).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	realtime.Publish(realtime.VenueTopic(node.VenueID), realtime.Event{
		Kind:    realtime.KindUpdated,
		Entity:  realtime.EntityTable,
		Payload: node,
	})

	utils.RespondJSON(c, http.StatusOK, "Table updated", node)
}

// DeleteTableNode -> hapus meja beserta seluruh sesi dan ordernya.
// Sesi historis ikut terhapus hanya lewat jalur ini.
func (tc *TableNodeController) DeleteTableNode(c *gin.Context) {
	nodeID := c.Param("node_id")

	var node models.TableNode
	if err := tc.DB.First(&node, nodeID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		var sessionIDs []uint
		if err := tx.Model(&models.Session{}).
			Where("table_node_id = ?", node.ID).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := tx.Where("session_id IN ?", sessionIDs).
				Delete(&models.Order{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("table_node_id = ?", node.ID).
			Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&node).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	stats := tc.getDashboardStats(node.VenueID)
	realtime.Publish(realtime.VenueTopic(node.VenueID), realtime.Event{
		Kind:   realtime.KindDeleted,
		Entity: realtime.EntityTable,
		Payload: gin.H{
			"table_id": node.ID,
			"stats":    stats,
		},
	})

	utils.InfoLogger.Printf("Table %d deleted (venue=%d)", node.ID, node.VenueID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": node.ID})
}

// GetDashboardStats -> ringkasan okupansi venue untuk console staff
func (tc *TableNodeController) GetDashboardStats(c *gin.Context) {
	venueID, err := strconv.Atoi(c.Param("venue_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid venue id"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", tc.getDashboardStats(uint(venueID)))
}

// getDashboardStats menghitung okupansi: occupied = meja dengan sesi
// aktif, available = sisanya
func (tc *TableNodeController) getDashboardStats(venueID uint) map[string]interface{} {
	var total, occupied int64

	tc.DB.Model(&models.TableNode{}).
		Where("venue_id = ?", venueID).
		Count(&total)
	tc.DB.Model(&models.Session{}).
		Joins("JOIN table_nodes ON table_nodes.id = sessions.table_node_id").
		Where("table_nodes.venue_id = ? AND sessions.status = ?", venueID, models.SessionActive).
		Count(&occupied)

	return map[string]interface{}{
		"total":     total,
		"occupied":  occupied,
		"available": total - occupied,
	}
}
