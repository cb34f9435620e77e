package models

import "time"

type Credential struct {
	StoreID      string    `json:"storeId"`
	UseRemoteAPI bool      `json:"useRemoteApi"`
	SavedAt      time.Time `json:"savedAt"`
}

type Token struct {
	Value     string `json:"value"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"` // unix seconds
}
