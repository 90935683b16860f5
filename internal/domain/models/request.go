package models

import "time"

type RequestType string

const (
	RequestManualPickup   RequestType = "MANUAL_PICKUP"
	RequestMaintenance    RequestType = "MAINTENANCE"
	RequestHazardousWaste RequestType = "HAZARDOUS_WASTE"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestCancelled  RequestStatus = "CANCELLED"
)

// Open reports whether the request still needs work.
func (s RequestStatus) Open() bool {
	return s == RequestPending || s == RequestInProgress
}

// ServiceRequest is a pickup, maintenance or hazardous waste ticket.
// BinRef is the storage ID of the related bin, if any.
type ServiceRequest struct {
	ID          string        `json:"id"`
	Type        RequestType   `json:"type"`
	Description string        `json:"description"`
	Priority    Priority      `json:"priority"`
	Status      RequestStatus `json:"status"`
	BinRef      string        `json:"binId,omitempty"`
	Bin         *BinSummary   `json:"bin,omitempty"`
	UserID      string        `json:"userId"`
	AdminNotes  string        `json:"adminNotes,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type RequestFilter struct {
	UserID   string
	Status   RequestStatus
	Type     RequestType
	Priority Priority
	BinRef   string
}

func (f RequestFilter) Matches(r *ServiceRequest) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	if f.BinRef != "" && r.BinRef != f.BinRef {
		return false
	}
	return true
}

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	// RoleSystem is used by background jobs.
	RoleSystem Role = "SYSTEM"
)

// Principal is the caller identity forwarded by the auth proxy.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSystem
}

// Owns reports whether the principal created the resource.
func (p Principal) Owns(ownerID string) bool {
	return p.UserID != "" && p.UserID == ownerID
}

// SystemPrincipal identifies internal writers such as the collection job.
var SystemPrincipal = Principal{UserID: "system", Role: RoleSystem}
