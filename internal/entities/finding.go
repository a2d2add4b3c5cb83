// Package entities contains the core domain objects for the hazard-bot application
package entities

import (
	"time"
)

// Status is the lifecycle state of an inspection finding
type Status string

const (
	StatusTemuan  Status = "Temuan"  // found, still open
	StatusPending Status = "Pending" // waiting for a work order
	StatusSelesai Status = "Selesai" // remediation done
)

// InspectionFinding represents a single tree-hazard inspection record
type InspectionFinding struct {
	ID                string `json:"id"`
	Lokasi            string `json:"lokasi"`            // Free-text location
	JenisPohon        string `json:"jenisPohon"`        // Tree species
	ULP               string `json:"ulp"`               // Owning operational unit
	Petugas           string `json:"petugas"`           // Reporting officer
	TglInspeksi       string `json:"tglInspeksi"`       // Inspection date, calendar date
	TglEksekusi       string `json:"tglEksekusi"`       // Execution date, empty until remediated
	Status            Status `json:"status"`            // Temuan, Pending or Selesai
	PrediksiInspektur string `json:"prediksiInspektur"` // Inspector's time-to-hazard estimate
	Koordinat         string `json:"koordinat"`         // Optional coordinate string
	FotoSebelumURL    string `json:"fotoSebelumUrl"`    // Optional photo before remediation
	ImageURL          string `json:"imageUrl"`          // Optional alternate photo reference
}

// PhotoURL returns the best available photo reference for the finding
func (f InspectionFinding) PhotoURL() string {
	if f.FotoSebelumURL != "" {
		return f.FotoSebelumURL
	}
	return f.ImageURL
}

// NotificationType identifies which channel a log entry belongs to
type NotificationType string

const (
	NotificationCritical NotificationType = "CRITICAL_FINDING"
	NotificationDaily    NotificationType = "DAILY_SUMMARY"
)

// DeliveryStatus is the outcome of a dispatch attempt
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// NotificationLogEntry is an append-only record of one dispatch attempt
type NotificationLogEntry struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	TreeID    string           `json:"treeId,omitempty"`
	TreeCount int              `json:"treeCount,omitempty"`
	Message   string           `json:"message"`
	SentAt    time.Time        `json:"sentAt"`
	Status    DeliveryStatus   `json:"status"`
}
