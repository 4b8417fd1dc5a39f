package models

import "time"

// Vehicle is a fleet vehicle referenced by fuel purchase entries
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Plate     string    `gorm:"uniqueIndex;not null" json:"plate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Vehicle
func (Vehicle) TableName() string {
	return "vehicles"
}
