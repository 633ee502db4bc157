package entities

import "time"

// GenerationJob is the persisted job log row.
type GenerationJob struct {
	ID            string    `gorm:"type:varchar(40);primaryKey"`
	Kind          string    `gorm:"type:varchar(16);not null"`
	OperationName string    `gorm:"type:varchar(255);index"`
	SceneID       string    `gorm:"type:varchar(64)"`
	ProjectID     string    `gorm:"type:varchar(128)"`
	ModelKey      string    `gorm:"type:varchar(128)"`
	Prompt        string    `gorm:"type:text"`
	Status        string    `gorm:"type:varchar(64);not null"`
	MediaURL      string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (GenerationJob) TableName() string {
	return "flow_api.generation_jobs"
}
