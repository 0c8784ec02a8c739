package domain

import (
	"strings"
	"time"
)

// ProjectType はインフラ案件の種別。スキーマ変更でのみ拡張される閉じた集合。
type ProjectType string

const (
	TypeRoad        ProjectType = "road"
	TypeHospital    ProjectType = "hospital"
	TypeSchool      ProjectType = "school"
	TypeTourismSite ProjectType = "tourism_site"
	TypeBridge      ProjectType = "bridge"
	TypeAirport     ProjectType = "airport"
	TypeWaterSupply ProjectType = "water_supply"
	TypePowerPlant  ProjectType = "power_plant"
	TypeHousing     ProjectType = "housing"
)

// ValidProjectTypes は有効なProjectTypeの一覧を返す。
func ValidProjectTypes() []ProjectType {
	return []ProjectType{
		TypeRoad,
		TypeHospital,
		TypeSchool,
		TypeTourismSite,
		TypeBridge,
		TypeAirport,
		TypeWaterSupply,
		TypePowerPlant,
		TypeHousing,
	}
}

// IsValid はProjectTypeが既知の値かを返す。
func (t ProjectType) IsValid() bool {
	for _, v := range ValidProjectTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// ProjectStatus はプロジェクトのライフサイクル上の状態。
type ProjectStatus string

const (
	StatusProposed   ProjectStatus = "proposed"
	StatusApproved   ProjectStatus = "approved"
	StatusInProgress ProjectStatus = "in_progress"
	StatusCompleted  ProjectStatus = "completed"
	StatusOnHold     ProjectStatus = "on_hold"
	StatusCancelled  ProjectStatus = "cancelled"
)

// ValidProjectStatuses は有効なProjectStatusの一覧を返す。
func ValidProjectStatuses() []ProjectStatus {
	return []ProjectStatus{
		StatusProposed,
		StatusApproved,
		StatusInProgress,
		StatusCompleted,
		StatusOnHold,
		StatusCancelled,
	}
}

// IsValid はProjectStatusが既知の値かを返す。
func (s ProjectStatus) IsValid() bool {
	for _, v := range ValidProjectStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal は completed / cancelled のいずれかかを返す。
func (s ProjectStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AdministrativeRegions はプロジェクト所在地として有効な州（36州+連邦首都地区）。
var AdministrativeRegions = []string{
	"Abia", "Adamawa", "Akwa Ibom", "Anambra", "Bauchi", "Bayelsa", "Benue", "Borno", "Cross River",
	"Delta", "Ebonyi", "Edo", "Ekiti", "Enugu", "FCT", "Gombe", "Imo", "Jigawa", "Kaduna", "Kano",
	"Katsina", "Kebbi", "Kogi", "Kwara", "Lagos", "Nasarawa", "Niger", "Ogun", "Ondo", "Osun",
	"Oyo", "Plateau", "Rivers", "Sokoto", "Taraba", "Yobe", "Zamfara",
}

// IsValidRegion は州名が閉じた集合に含まれるかを返す。
func IsValidRegion(state string) bool {
	for _, r := range AdministrativeRegions {
		if r == state {
			return true
		}
	}
	return false
}

// Location はプロジェクトの所在地。
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	State     string  `json:"state"`
	LGA       string  `json:"lga"`
}

// Project は公共インフラ案件を表す。削除されず、cancelled への遷移でのみ終了する。
type Project struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Type               ProjectType   `json:"type"`
	Location           Location      `json:"location"`
	Budget             int64         `json:"budget"` // 最小通貨単位
	TimelineStart      time.Time     `json:"timeline_start"`
	TimelineEnd        time.Time     `json:"timeline_end"`
	Status             ProjectStatus `json:"status"`
	HeldFrom           ProjectStatus `json:"held_from,omitempty"` // on_hold 前の状態
	ProgressPercentage int           `json:"progress_percentage"`
	DeveloperID        string        `json:"developer_id"`
	ApprovedBy         string        `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time    `json:"approved_at,omitempty"`
	Version            int64         `json:"version"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Clone はProjectのコピーを返す。
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

// ProjectSummary はProjectのサマリビュー。一覧・検索時に使用する。
type ProjectSummary struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Type               ProjectType   `json:"type"`
	State              string        `json:"state"`
	Status             ProjectStatus `json:"status"`
	ProgressPercentage int           `json:"progress_percentage"`
	Budget             int64         `json:"budget"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ToSummary はProjectからProjectSummaryを生成する。
func (p *Project) ToSummary() ProjectSummary {
	return ProjectSummary{
		ID:                 p.ID,
		Title:              p.Title,
		Type:               p.Type,
		State:              p.Location.State,
		Status:             p.Status,
		ProgressPercentage: p.ProgressPercentage,
		Budget:             p.Budget,
		UpdatedAt:          p.UpdatedAt,
	}
}

// ProjectDraft はプロジェクト作成時の入力値。
type ProjectDraft struct {
	Title         string
	Description   string
	Type          ProjectType
	Location      Location
	Budget        int64
	TimelineStart time.Time
	TimelineEnd   time.Time
}

// Validate は全フィールドを検証し、違反をまとめて返す。
func (d ProjectDraft) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(d.Title) == "" {
		v.Add("title", "must not be empty")
	}
	if strings.TrimSpace(d.Description) == "" {
		v.Add("description", "must not be empty")
	}
	if !d.Type.IsValid() {
		v.Add("type", "unknown project type "+string(d.Type))
	}
	if !IsValidRegion(d.Location.State) {
		v.Add("location.state", "unknown administrative region "+d.Location.State)
	}
	if d.Budget < 0 {
		v.Add("budget", "must be greater than or equal to 0")
	}
	switch {
	case d.TimelineStart.IsZero():
		v.Add("timeline_start", "is required")
	case d.TimelineEnd.IsZero():
		v.Add("timeline_end", "is required")
	case d.TimelineStart.After(d.TimelineEnd):
		v.Add("timeline", "timeline_start must not be after timeline_end")
	}
	return v.Err()
}
