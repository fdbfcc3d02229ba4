// Package domain defines the persistence models for meal forecasts,
// presences, mess halls and the personnel reference data used to enrich them.
// These types are mapped with GORM and shared by the repository, service and
// aggregation layers.
package domain

import "time"

// MessHall is a dining facility. ID is the canonical identifier everywhere in
// the application; Code is a short human label kept for display only.
type MessHall struct {
	ID          int64  `json:"id"           gorm:"primaryKey;autoIncrement"`
	UnitID      int64  `json:"unit_id"      gorm:"not null;index"`
	Code        string `json:"code"         gorm:"type:varchar(32);not null;uniqueIndex"`
	DisplayName string `json:"display_name" gorm:"type:varchar(255);not null"`
}

// TableName returns the database table name for MessHall.
func (MessHall) TableName() string { return "mess_halls" }

// Unit is the organisation that owns one or more mess halls.
type Unit struct {
	ID          int64  `json:"id"           gorm:"primaryKey;autoIncrement"`
	Code        string `json:"code"         gorm:"type:varchar(32);not null;uniqueIndex"`
	DisplayName string `json:"display_name" gorm:"type:varchar(255);not null"`
}

// TableName returns the database table name for Unit.
func (Unit) TableName() string { return "units" }

// Forecast is a user's stated intention to eat a meal on a day at a mess hall.
// There is at most one row per (user_id, date, meal).
//
// Fields:
//   - UserID: opaque identifier of the user (auth subject).
//   - Date / Meal: the slot being forecast.
//   - WillEat: the intention; rows with false are ignored by aggregation.
//   - MessHallID: where the user intends to eat.
type Forecast struct {
	ID         int64     `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserID     string    `json:"user_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_forecast_user_date_meal,priority:1"`
	Date       Date      `json:"date"         gorm:"type:date;not null;uniqueIndex:ux_forecast_user_date_meal,priority:2;index"`
	Meal       Meal      `json:"meal"         gorm:"type:varchar(16);not null;uniqueIndex:ux_forecast_user_date_meal,priority:3"`
	WillEat    bool      `json:"will_eat"     gorm:"not null;default:true"`
	MessHallID int64     `json:"mess_hall_id" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Forecast.
func (Forecast) TableName() string { return "meal_forecasts" }

// Presence is a confirmed physical attendance recorded by the check-in flow.
// A user can be present at most once per (date, meal, mess hall).
type Presence struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_presence_user_date_meal_hall,priority:1"`
	Date       Date      `json:"date"         gorm:"type:date;not null;uniqueIndex:ux_presence_user_date_meal_hall,priority:2;index:idx_presence_slot,priority:1"`
	Meal       Meal      `json:"meal"         gorm:"type:varchar(16);not null;uniqueIndex:ux_presence_user_date_meal_hall,priority:3;index:idx_presence_slot,priority:2"`
	MessHallID int64     `json:"mess_hall_id" gorm:"not null;uniqueIndex:ux_presence_user_date_meal_hall,priority:4;index:idx_presence_slot,priority:3"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Presence.
func (Presence) TableName() string { return "meal_presences" }

// OtherPresence counts a walk-in diner with no registered user, added by a
// fiscal. Rows carry no personal data.
type OtherPresence struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	AdminID    string    `json:"admin_id"     gorm:"type:varchar(64);not null"`
	Date       Date      `json:"date"         gorm:"type:date;not null;index:idx_other_slot,priority:1"`
	Meal       Meal      `json:"meal"         gorm:"type:varchar(16);not null;index:idx_other_slot,priority:2"`
	MessHallID int64     `json:"mess_hall_id" gorm:"not null;index:idx_other_slot,priority:3"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for OtherPresence.
func (OtherPresence) TableName() string { return "other_presences" }

// UserData links an auth user to a military record and stores preferences.
type UserData struct {
	ID                string    `json:"id"                             gorm:"type:varchar(64);primaryKey"`
	Email             string    `json:"email"                          gorm:"type:varchar(255)"`
	NrOrdem           *string   `json:"nr_ordem,omitempty"             gorm:"type:varchar(32);index"`
	DefaultMessHallID *int64    `json:"default_mess_hall_id,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserData.
func (UserData) TableName() string { return "user_data" }

// MilitaryData is the personnel record keyed by service number (nr_ordem).
type MilitaryData struct {
	NrOrdem  string `json:"nr_ordem"  gorm:"type:varchar(32);primaryKey"`
	NmGuerra string `json:"nm_guerra" gorm:"type:varchar(120)"`
	NmPessoa string `json:"nm_pessoa" gorm:"type:varchar(255)"`
	SgPosto  string `json:"sg_posto"  gorm:"type:varchar(32)"`
	SgOrg    string `json:"sg_org"    gorm:"type:varchar(64)"`
}

// TableName returns the database table name for MilitaryData.
func (MilitaryData) TableName() string { return "user_military_data" }
