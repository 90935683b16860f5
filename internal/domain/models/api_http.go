package models

// Request bodies and query strings bound by the HTTP handlers.

type ListBinsRequest struct {
	Category string `query:"category" validate:"omitempty,oneof=PLASTIC PAPER METAL ORGANIC GLASS EWASTE"`
	Status   string `query:"status" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Search   string `query:"search" validate:"omitempty,max=100"`
}

type CreateBinRequest struct {
	BinID     string   `json:"binId" validate:"required,min=1,max=32"`
	Category  string   `json:"category" validate:"required,oneof=PLASTIC PAPER METAL ORGANIC GLASS EWASTE"`
	Location  string   `json:"location" validate:"required,min=1,max=200"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Capacity  int      `json:"capacity" default:"100" validate:"gte=1,lte=10000"`
}

// UpdateBinRequest only touches fields that are present.
type UpdateBinRequest struct {
	BinID        *string  `json:"binId" validate:"omitempty,min=1,max=32"`
	Category     *string  `json:"category" validate:"omitempty,oneof=PLASTIC PAPER METAL ORGANIC GLASS EWASTE"`
	Location     *string  `json:"location" validate:"omitempty,min=1,max=200"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Capacity     *int     `json:"capacity" validate:"omitempty,gte=1,lte=10000"`
	CurrentLevel *float64 `json:"currentLevel" validate:"omitempty,gte=0,lte=100"`
	Status       *string  `json:"status" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

type SetLevelRequest struct {
	CurrentLevel *float64 `json:"currentLevel" validate:"required,gte=0,lte=100"`
}

type ListRequestsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
	Type     string `query:"type" validate:"omitempty,oneof=MANUAL_PICKUP MAINTENANCE HAZARDOUS_WASTE"`
	Priority string `query:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

type CreateServiceRequest struct {
	Type        string `json:"type" validate:"required,oneof=MANUAL_PICKUP MAINTENANCE HAZARDOUS_WASTE"`
	Description string `json:"description" validate:"required,min=10,max=2000"`
	Priority    string `json:"priority" default:"NORMAL" validate:"oneof=LOW NORMAL HIGH URGENT"`
	BinRef      string `json:"binId" validate:"omitempty,max=64"`
}

// UpdateServiceRequest edits details; clearBin detaches the bin.
type UpdateServiceRequest struct {
	Type        *string `json:"type" validate:"omitempty,oneof=MANUAL_PICKUP MAINTENANCE HAZARDOUS_WASTE"`
	Description *string `json:"description" validate:"omitempty,min=10,max=2000"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	BinRef      *string `json:"binId" validate:"omitempty,max=64"`
	ClearBin    bool    `json:"clearBin"`
}

type UpdateRequestStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
	AdminNotes *string `json:"adminNotes" validate:"omitempty,max=2000"`
}

type ReportRequest struct {
	From string `query:"from"`
	To   string `query:"to"`
	Days int    `query:"days" default:"7" validate:"gte=1,lte=90"`
}
