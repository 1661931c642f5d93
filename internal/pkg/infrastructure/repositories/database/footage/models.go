package footage

import "time"

type CctvFootage struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
	VideoURL        string    `gorm:"not null" json:"video_url"`
	FileName        *string   `json:"file_name"`
	ThumbnailURL    *string   `json:"thumbnail_url"`
	DurationSeconds *int      `json:"duration_seconds"`
	FileSizeMB      *float64  `gorm:"column:file_size_mb" json:"file_size_mb"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

func (CctvFootage) TableName() string {
	return "cctv_footage"
}
