package models

import "time"

// User represents a user account
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PartyMember represents a player-controlled character in a user's party.
// Fighting and Villain move together: a member is fighting if and only if a
// villain is assigned.
type PartyMember struct {
	ID       int64   `json:"id"`
	UserID   string  `json:"userId"`
	HeroID   int64   `json:"heroId"`
	HeroName string  `json:"heroName"`
	Villain  *string `json:"villain"`
	Fighting bool    `json:"fighting"`
	Health   int64   `json:"health"`
	Weapon   string  `json:"weapon"`
	Armour   string  `json:"armour"`
	Level    int     `json:"level"`
}

// Game aggregates win/loss counters for one user's session
type Game struct {
	ID      int64     `json:"id"`
	UserID  string    `json:"userId"`
	Won     int       `json:"won"`
	Lost    int       `json:"lost"`
	Over    bool      `json:"over"`
	Created time.Time `json:"created"`
}
