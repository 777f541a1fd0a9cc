package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&CameraSession{},
}

// CameraSession is one finished third-person session.
type CameraSession struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement"`
	CreatedAt  time.Time      `json:"createdAt"`
	Slot       int            `json:"slot" gorm:"index:idx_camera_session_player"`
	Connection uint64         `json:"connection" gorm:"index:idx_camera_session_player"`
	SteamID    uint64         `json:"steamId" gorm:"index:idx_camera_session_steam_id"`
	Mode       string         `json:"mode" gorm:"size:16"`
	Round      uint           `json:"round" gorm:"index:idx_camera_session_round"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
	DurationMs int64          `json:"durationMs"`
	Reason     string         `json:"reason" gorm:"size:32"`
	Loadout    datatypes.JSON `json:"loadout"` // stripped weapons as [{name,count}]
}

func (*CameraSession) TableName() string {
	return "camera_sessions"
}
