package models

import "time"

type SyncMethod string

const (
	MethodRemoteAPI  SyncMethod = "remoteApi"
	MethodLocalStore SyncMethod = "localStore"
	MethodFileExport SyncMethod = "fileExport"
	MethodWebhook    SyncMethod = "webhook"
)

func (m SyncMethod) Valid() bool {
	switch m {
	case MethodRemoteAPI, MethodLocalStore, MethodFileExport, MethodWebhook:
		return true
	}
	return false
}

type SyncResult struct {
	Success     bool                   `json:"success"`
	Method      SyncMethod             `json:"method"`
	DataSummary map[Collection]int     `json:"dataSummary,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Progress is reported after each fetch or persisted key.
type Progress struct {
	Step       int        `json:"step"`
	Total      int        `json:"total"`
	Collection Collection `json:"collection"`
	Count      int        `json:"count"`
	Percentage int        `json:"percentage"`
}

type SyncMetadata struct {
	LastSyncAt   time.Time    `json:"lastSyncAt"`
	Method       SyncMethod   `json:"method"`
	Collections  []Collection `json:"collections"`
	TotalRecords int          `json:"totalRecords"`
}
