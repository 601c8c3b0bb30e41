package models

// BattleRequest is published on the battles-request stream when a member
// enters combat. The external combat simulator answers with a BattleEnd.
type BattleRequest struct {
	ID          string       `json:"id"`
	PartyMember *PartyMember `json:"partyMember"`
	GameID      int64        `json:"gameId"`
}

// BattleEndMember is the member snapshot carried by a battle-end event.
type BattleEndMember struct {
	ID       int64   `json:"id"`
	UserID   string  `json:"userId"`
	HeroName string  `json:"heroName"`
	Villain  *string `json:"villain"`
	Health   int64   `json:"health"`
}

// BattleEnd is consumed from the battles-end stream once per delivery;
// the stream redelivers on failure (at-least-once).
type BattleEnd struct {
	ID          string           `json:"id"`
	PartyMember *BattleEndMember `json:"partyMember"`
	GameID      *int64           `json:"gameId"`
	IsVictory   bool             `json:"isVictory"`
}

// BattleUpdate is the user-facing notification produced for every processed
// battle-end event.
type BattleUpdate struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// FightRequest toggles the fighting status of a party member
type FightRequest struct {
	PartyMemberID int64 `json:"partyMemberId"`
	GameID        int64 `json:"gameId"`
}

// HealRequest heals either a whole party or a single member
type HealRequest struct {
	GameID        *int64 `json:"gameId"`
	PartyMemberID *int64 `json:"partyMemberId"`
	HealAll       bool   `json:"healAll"`
}
