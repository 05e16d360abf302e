package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/models"
	"github.com/andikasp/mejaqr/realtime"
	"github.com/andikasp/mejaqr/utils"
)

type OrderController struct {
	DB *gorm.DB
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db}
}

// PlaceOrder -> tamu membuat satu order per line item. Session, table,
// dan device di-stamp dari lookup server, bukan dipercaya dari client.
// Order dibuat satu per satu: subscriber boleh melihat batch yang
// setengah jadi, yang dijamin hanya eventual completeness.
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	node, ok := oc.resolveNode(c)
	if !ok {
		return
	}

	var session models.Session
	if err := oc.DB.Where("table_node_id = ? AND status = ?", node.ID, models.SessionActive).
		First(&session).Error; err != nil {
		utils.RespondError(c, http.StatusConflict, ErrSessionInactive)
		return
	}

	type ItemReq struct {
		MenuItemID uint   `json:"menu_item_id" binding:"required"`
		Quantity   int    `json:"quantity" binding:"required"`
		Note       string `json:"note"`
	}

	var body struct {
		SessionID    uint      `json:"session_id"`
		CustomerName string    `json:"customer_name" binding:"required"`
		DeviceID     string    `json:"device_id" binding:"required"`
		Items        []ItemReq `json:"items" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	// Client yang masih memegang session id lama (meja sudah di-reset)
	// harus re-resolve dulu, bukan diam-diam menempel ke sesi baru.
	if body.SessionID != 0 && body.SessionID != session.ID {
		utils.RespondError(c, http.StatusConflict, ErrSessionConflict)
		return
	}

	for _, item := range body.Items {
		if item.Quantity < 1 {
			utils.RespondError(c, http.StatusBadRequest,
				fmt.Errorf("invalid quantity %d", item.Quantity))
			return
		}
	}

	// Item yang tidak dikenal atau tidak tersedia tidak dibuang
	// diam-diam: id-nya dilaporkan balik di "skipped" supaya UI tamu
	// bisa menampilkan item mana yang gagal masuk.
	var created []models.Order
	skipped := make([]uint, 0)
	for _, item := range body.Items {
		// Harga di-resolve dari katalog saat order dibuat
		var menuItem models.MenuItem
		if err := oc.DB.First(&menuItem, item.MenuItemID).Error; err != nil {
			skipped = append(skipped, item.MenuItemID)
			continue
		}
		if !menuItem.Available {
			skipped = append(skipped, item.MenuItemID)
			continue
		}

		order := models.Order{
			SessionID:     session.ID,
			MenuItemID:    menuItem.ID,
			Quantity:      item.Quantity,
			Price:         menuItem.Price,
			CustomerName:  body.CustomerName,
			DeviceID:      body.DeviceID,
			OrderStatus:   models.OrderPending,
			PaymentStatus: models.PaymentUnpaid,
			Note:          item.Note,
		}
		if err := oc.DB.Create(&order).Error; err != nil {
			utils.ErrorLogger.Printf("PlaceOrder: create failed: %v", err)
			skipped = append(skipped, item.MenuItemID)
			continue
		}
		order.MenuItem = menuItem
		created = append(created, order)

		realtime.PublishOrderChange(realtime.KindCreated, order, node.VenueID)
	}

	if len(created) == 0 {
		utils.RespondError(c, http.StatusBadRequest,
			fmt.Errorf("no orderable items in request"))
		return
	}

	utils.InfoLogger.Printf("%d order(s) placed at table %s by %s",
		len(created), node.Label, body.CustomerName)
	utils.RespondJSON(c, http.StatusCreated, "Orders placed", gin.H{
		"orders":  created,
		"skipped": skipped,
	})
}

// UpdateStatus -> staff memindahkan status persiapan. Transisi mundur
// diizinkan (koreksi dari kitchen board); kontrak timestamp tetap
// dijaga: served_at terisi tepat ketika status served, kosong ketika
// bukan.
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if !validOrderStatus(body.Status) {
		utils.RespondError(c, http.StatusBadRequest,
			fmt.Errorf("unknown order status %q", body.Status))
		return
	}

	order, ok := oc.orderByID(c)
	if !ok {
		return
	}

	applyOrderStatus(&order, body.Status)
	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.publishOrder(realtime.KindUpdated, order)

	utils.InfoLogger.Printf("Order %d status -> %s", order.ID, order.OrderStatus)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// UpdatePayment -> simetris dengan UpdateStatus untuk sumbu pembayaran
func (oc *OrderController) UpdatePayment(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.Status != models.PaymentUnpaid && body.Status != models.PaymentPaid {
		utils.RespondError(c, http.StatusBadRequest,
			fmt.Errorf("unknown payment status %q", body.Status))
		return
	}

	order, ok := oc.orderByID(c)
	if !ok {
		return
	}

	now := time.Now()
	if body.Status == models.PaymentPaid && order.PaymentStatus != models.PaymentPaid {
		order.PaidAt = &now
	}
	if body.Status != models.PaymentPaid {
		order.PaidAt = nil
	}
	order.PaymentStatus = body.Status

	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.publishOrder(realtime.KindUpdated, order)

	utils.InfoLogger.Printf("Order %d payment -> %s", order.ID, order.PaymentStatus)
	utils.RespondJSON(c, http.StatusOK, "Payment status updated", order)
}

// ToggleServed -> shortcut kitchen board: served <-> preparing
func (oc *OrderController) ToggleServed(c *gin.Context) {
	order, ok := oc.orderByID(c)
	if !ok {
		return
	}

	if order.OrderStatus == models.OrderServed {
		applyOrderStatus(&order, models.OrderPreparing)
	} else {
		applyOrderStatus(&order, models.OrderServed)
	}

	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.publishOrder(realtime.KindUpdated, order)

	utils.RespondJSON(c, http.StatusOK, "Order toggled", order)
}

// Annotate -> catatan bebas dari staff, tanpa efek samping lain
func (oc *OrderController) Annotate(c *gin.Context) {
	var body struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, ok := oc.orderByID(c)
	if !ok {
		return
	}

	order.Note = body.Note
	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.publishOrder(realtime.KindUpdated, order)

	utils.RespondJSON(c, http.StatusOK, "Note saved", order)
}

// DeleteOrder -> hapus permanen satu order
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	order, ok := oc.orderByID(c)
	if !ok {
		return
	}

	if err := oc.DB.Delete(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.publishOrder(realtime.KindDeleted, order)

	utils.RespondJSON(c, http.StatusOK, "Order deleted", gin.H{"order_id": order.ID})
}

// DeleteOrders -> bulk delete. Dikerjakan per id: satu id yang gagal
// tidak membatalkan sisanya, caller menerima daftar id yang gagal.
func (oc *OrderController) DeleteOrders(c *gin.Context) {
	var body struct {
		IDs []uint `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	deleted := make([]uint, 0, len(body.IDs))
	failed := make([]uint, 0)

	for _, id := range body.IDs {
		var order models.Order
		if err := oc.DB.First(&order, id).Error; err != nil {
			failed = append(failed, id)
			continue
		}
		if err := oc.DB.Delete(&order).Error; err != nil {
			failed = append(failed, id)
			continue
		}
		deleted = append(deleted, id)
		oc.publishOrder(realtime.KindDeleted, order)
	}

	if len(failed) > 0 {
		utils.InfoLogger.Printf("Bulk delete: %d ok, %d failed", len(deleted), len(failed))
	}

	utils.RespondJSON(c, http.StatusOK, "Bulk delete finished", gin.H{
		"deleted": deleted,
		"failed":  failed,
	})
}

// GetOrders -> proyeksi baca untuk console staff.
// view=default : terbaru dulu
// view=kitchen : order yang belum selesai dulu, lalu yang tertua
// view=table   : urut label meja secara numerik
func (oc *OrderController) GetOrders(c *gin.Context) {
	venueID := c.Param("venue_id")
	view := c.DefaultQuery("view", "default")

	q := oc.DB.Preload("MenuItem").
		Select("orders.*").
		Joins("JOIN sessions ON sessions.id = orders.session_id").
		Joins("JOIN table_nodes ON table_nodes.id = sessions.table_node_id").
		Where("table_nodes.venue_id = ?", venueID)

	switch view {
	case "kitchen":
		q = q.Order("CASE WHEN orders.order_status = 'served' THEN 1 ELSE 0 END").
			Order("orders.created_at asc")
	case "table":
		q = q.Order("LENGTH(table_nodes.label), table_nodes.label").
			Order("orders.created_at desc")
	default:
		q = q.Order("orders.created_at desc")
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> detail satu order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID := c.Param("order_id")

	var order models.Order
	if err := oc.DB.Preload("MenuItem").First(&order, orderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func validOrderStatus(status string) bool {
	switch status {
	case models.OrderPending, models.OrderPreparing, models.OrderServing, models.OrderServed:
		return true
	}
	return false
}

// applyOrderStatus menjaga invariant served_at: terisi tepat ketika
// order masuk served, dikosongkan ketika keluar dari served.
func applyOrderStatus(order *models.Order, newStatus string) {
	if newStatus == models.OrderServed && order.OrderStatus != models.OrderServed {
		now := time.Now()
		order.ServedAt = &now
	}
	if newStatus != models.OrderServed {
		order.ServedAt = nil
	}
	order.OrderStatus = newStatus
}

func (oc *OrderController) resolveNode(c *gin.Context) (models.TableNode, bool) {
	token := c.Param("token")

	var node models.TableNode
	if err := oc.DB.Where("access_token = ?", token).First(&node).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("table not found"))
		return node, false
	}
	return node, true
}

func (oc *OrderController) orderByID(c *gin.Context) (models.Order, bool) {
	orderID := c.Param("order_id")

	var order models.Order
	if err := oc.DB.First(&order, orderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return order, false
	}
	return order, true
}

// publishOrder -> broadcast setelah commit; kegagalan lookup venue
// hanya menurunkan propagasi, mutasinya sendiri sudah berhasil
func (oc *OrderController) publishOrder(kind string, order models.Order) {
	var node models.TableNode
	err := oc.DB.
		Select("table_nodes.*").
		Joins("JOIN sessions ON sessions.table_node_id = table_nodes.id").
		Where("sessions.id = ?", order.SessionID).
		First(&node).Error
	if err != nil {
		utils.ErrorLogger.Printf("publishOrder: venue lookup failed: %v", err)
		return
	}
	realtime.PublishOrderChange(kind, order, node.VenueID)
}
