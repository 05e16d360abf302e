package Controllers_test

import (
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/models"
	"github.com/andikasp/mejaqr/utils"
)

var testDBCounter int64

// setupTestDB -> SQLite in-memory baru per test. Nama DB unik supaya
// state antar test tidak bocor lewat cache=shared.
func setupTestDB() *gorm.DB {
	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.TableNode{},
		&models.Session{},
		&models.MenuItem{},
		&models.Order{},
	)
	if err != nil {
		panic(err)
	}
	return db
}

// seedTableNode -> meja siap pakai dengan access token tetap
func seedTableNode(db *gorm.DB, label string) models.TableNode {
	node := models.TableNode{
		Label:       label,
		AccessToken: "token-" + label,
		VenueID:     1,
	}
	db.Create(&node)
	return node
}

// seedActiveSession -> sesi aktif langsung di DB, tanpa lewat endpoint
func seedActiveSession(db *gorm.DB, node models.TableNode, pin string) models.Session {
	one := uint(1)
	session := models.Session{
		TableNodeID:      node.ID,
		Status:           models.SessionActive,
		ActiveFlag:       &one,
		VerificationCode: pin,
		PinRequired:      true,
		StartedAt:        time.Now(),
	}
	db.Create(&session)
	return session
}

func seedMenuItem(db *gorm.DB, name string, price float64) models.MenuItem {
	item := models.MenuItem{
		Name:      name,
		Price:     price,
		Available: true,
	}
	db.Create(&item)
	return item
}

func init() {
	utils.InitLogger()
}
