package models

import (
	"time"
)

// UrbanDataRecord 城市数据缓存，按地区键存储最新一条
type UrbanDataRecord struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Location       string    `gorm:"size:128;not null;uniqueIndex" json:"location"`
	IncomeLevel    int       `gorm:"not null" json:"income_level"`
	PollutionLevel int       `gorm:"not null" json:"pollution_level"`
	TransportScore int       `gorm:"not null" json:"public_transport_score"`
	Density        int       `gorm:"not null" json:"population_density"`
	Timestamp      time.Time `gorm:"not null" json:"timestamp"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UrbanDataRecord) TableName() string {
	return "urban_data_records"
}
