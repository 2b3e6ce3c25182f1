package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
	"github.com/mahuwo/mahuwo-backend/pkg/db/models"
	"github.com/mahuwo/mahuwo-backend/pkg/enums"
	"github.com/mahuwo/mahuwo-backend/pkg/types"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}, &models.Listing{}, &models.ListingImage{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := config.DBConfig{Driver: config.DriverSQLite, SQLitePath: "file:new_sqlite?mode=memory&cache=shared"}
	client, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer client.Close()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNew_RequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DriverPostgres}, nil); err == nil {
		t.Fatal("expected error without dsn")
	}
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DriverSQLite}, nil); err == nil {
		t.Fatal("expected error without sqlite path")
	}
}

func TestListingPublicDataRoundTrip(t *testing.T) {
	db := newTestDB(t)

	listing := models.Listing{
		Title: "Cabin",
		PublicData: types.PublicData{ListingVideos: []types.ListingVideo{
			{ID: types.SlotKey(0), Asset: types.VideoAsset{URL: "https://cdn/a.mp4", Type: "video"}},
		}},
	}
	if err := db.Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if listing.ID == uuid.Nil {
		t.Fatal("expected id assigned on create")
	}

	var loaded models.Listing
	if err := db.First(&loaded, "id = ?", listing.ID).Error; err != nil {
		t.Fatalf("load listing: %v", err)
	}
	if loaded.State != enums.ListingStateDraft {
		t.Fatalf("expected draft state, got %q", loaded.State)
	}
	if len(loaded.PublicData.ListingVideos) != 1 || loaded.PublicData.ListingVideos[0].Asset.URL != "https://cdn/a.mp4" {
		t.Fatalf("unexpected public data %+v", loaded.PublicData)
	}
}

func TestListingRejectsUnknownState(t *testing.T) {
	db := newTestDB(t)
	listing := models.Listing{Title: "Cabin", State: enums.ListingState("pending")}
	if err := db.Create(&listing).Error; err == nil {
		t.Fatal("expected unknown state to be rejected")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	img := models.ListingImage{GCSKey: "images/a.jpg", URL: "u", FileName: "a.jpg", MimeType: "image/jpeg"}
	if err := db.Create(&img).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}
	dup := models.ListingImage{GCSKey: "images/a.jpg", URL: "u", FileName: "a.jpg", MimeType: "image/jpeg"}
	err := db.Create(&dup).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
}
