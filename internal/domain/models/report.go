package models

import "time"

type CategoryStat struct {
	Category    Category `json:"category"`
	Bins        int      `json:"bins"`
	AverageFill float64  `json:"averageFill"`
	Critical    int      `json:"critical"`
}

// HourStat is the fill volume accumulated in one hour of day.
type HourStat struct {
	Hour   int     `json:"hour"`
	Filled float64 `json:"filled"`
}

type DailyCollection struct {
	Day    string  `json:"day"`
	Count  int     `json:"count"`
	Volume float64 `json:"volume"`
}

// ReportSummary feeds the reports dashboard.
type ReportSummary struct {
	From             time.Time             `json:"from"`
	To               time.Time             `json:"to"`
	TotalBins        int                   `json:"totalBins"`
	AverageFill      float64               `json:"averageFill"`
	CriticalBins     int                   `json:"criticalBins"`
	Categories       []CategoryStat        `json:"categories"`
	PeakHours        []HourStat            `json:"peakHours"`
	Collections      []DailyCollection     `json:"collections"`
	RequestsByStatus map[RequestStatus]int `json:"requestsByStatus"`
	HistoryAvailable bool                  `json:"historyAvailable"`
}
