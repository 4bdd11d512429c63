package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crowdqueue/backend/pkg/models"
)

type MySQLDB struct {
	*gorm.DB
}

func NewMySQLDB(host, port, user, password, dbname string) (*MySQLDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQLDB{DB: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	return db.AutoMigrate(
		&models.User{},
		&models.PlayedTrack{},
	)
}

// User operations
func (db *MySQLDB) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUserBySpotifyID returns the stored user for a Spotify identity,
// creating it on first login and refreshing the display fields otherwise.
func (db *MySQLDB) UpsertUserBySpotifyID(spotifyID, displayName, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "spotify_id = ?", spotifyID).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			ID:          uuid.New(),
			SpotifyID:   spotifyID,
			DisplayName: displayName,
			Email:       email,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	user.Email = email
	user.UpdatedAt = time.Now()
	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// History operations

// ArchiveTracks records queue entries that have left the queue. Satisfies
// the queue service's Archiver.
func (db *MySQLDB) ArchiveTracks(ctx context.Context, tracks []models.QueuedTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	archived := make([]models.PlayedTrack, len(tracks))
	now := time.Now()
	for i, t := range tracks {
		archived[i] = models.PlayedTrack{
			ID:             uuid.New(),
			QueueEntryID:   t.ID,
			SpotifyTrackID: t.SpotifyTrackID,
			Name:           t.Name,
			Artists:        t.Artists,
			AlbumName:      t.AlbumName,
			Votes:          t.Votes,
			AddedBy:        t.AddedBy,
			ArchivedAt:     now,
		}
	}

	return db.WithContext(ctx).Create(&archived).Error
}

func (db *MySQLDB) ListPlayedTracks(limit int) ([]models.PlayedTrack, error) {
	var tracks []models.PlayedTrack
	if err := db.Order("archived_at DESC").Limit(limit).Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}
