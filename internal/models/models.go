package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RankExcluded is the sentinel rank marking a requirement as excluded from
// stack-rank ordering. Rank normalization leaves these rows untouched.
const RankExcluded = 999

// CriteriaScores maps criterion id to the score a requirement received on
// that criterion. Stored as a JSON text column.
type CriteriaScores map[string]float64

func (cs CriteriaScores) Value() (driver.Value, error) {
	if cs == nil {
		return "{}", nil
	}
	data, err := json.Marshal(cs)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (cs *CriteriaScores) Scan(value interface{}) error {
	if value == nil {
		*cs = CriteriaScores{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for CriteriaScores")
	}
	if len(data) == 0 {
		*cs = CriteriaScores{}
		return nil
	}
	return json.Unmarshal(data, cs)
}

// Comment is one entry in a requirement's comment log.
type Comment struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLog is the ordered comment history of a requirement. Stored as a
// JSON text column.
type CommentLog []Comment

func (cl CommentLog) Value() (driver.Value, error) {
	if cl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(cl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (cl *CommentLog) Scan(value interface{}) error {
	if value == nil {
		*cl = CommentLog{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for CommentLog")
	}
	if len(data) == 0 {
		*cl = CommentLog{}
		return nil
	}
	return json.Unmarshal(data, cl)
}

// Requirement is the core business entity, keyed by a unique, stable string
// key (e.g. "PROJ-1"). Beyond the fixed columns below, the requirements
// table grows additional nullable text columns over time as imports map
// novel fields; those are read and written through map-based queries, not
// through this struct. Deletion is hard so a re-imported key classifies as
// a fresh insert.
type Requirement struct {
	Key              string         `gorm:"primaryKey;size:100" json:"key"`
	Summary          string         `gorm:"type:text" json:"summary"`
	Priority         string         `gorm:"size:50" json:"priority"`
	Status           string         `gorm:"size:50" json:"status"`
	Assignee         string         `gorm:"size:200" json:"assignee"`
	Labels           string         `gorm:"size:500" json:"labels"`
	RelatedCustomers string         `gorm:"size:500" json:"related_customers"`
	RoughEstimate    string         `gorm:"size:100" json:"rough_estimate"`
	ProductOwner     string         `gorm:"size:200" json:"product_owner"`
	Weight           *int           `json:"weight"`
	Prioritization   *int           `json:"prioritization"`
	Rank             int            `gorm:"default:0" json:"rank"`
	Score            float64        `gorm:"default:0" json:"score"` // persisted for read efficiency, recomputed on every rescore
	Criteria         CriteriaScores `gorm:"type:text" json:"criteria"`
	Comments         CommentLog     `gorm:"type:text" json:"comments"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Criterion is a named, weighted scoring dimension with a bounded scale.
// Weights are intended to sum to <=100 across all criteria; that is a
// client-side soft constraint and is not enforced here.
type Criterion struct {
	ID        string    `gorm:"primaryKey;size:100" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Weight    float64   `gorm:"not null" json:"weight"`
	ScaleMin  float64   `gorm:"default:0" json:"scale_min"`
	ScaleMax  float64   `gorm:"default:10" json:"scale_max"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an authenticated dashboard user, created on first OTP request.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// OTPCode is one issued passcode. Only the bcrypt hash is stored; a code is
// single-use and expires a few minutes after issuance.
type OTPCode struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"index;size:255;not null" json:"email"`
	CodeHash   string     `gorm:"size:255;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SystemConfig represents system-wide configuration (stored in database)
type SystemConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:20;default:string" json:"type"` // string, int, bool
	Group     string    `gorm:"size:50;index" json:"group"`         // email, system
	Label     string    `gorm:"size:200" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SystemLog represents a system operation log entry
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	UserID    *uint     `json:"user_id"`
	IP        string    `gorm:"size:50" json:"ip"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON extra data
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides
func (Requirement) TableName() string  { return "requirements" }
func (Criterion) TableName() string    { return "criteria" }
func (User) TableName() string         { return "users" }
func (OTPCode) TableName() string      { return "otp_codes" }
func (SystemConfig) TableName() string { return "system_configs" }
func (SystemLog) TableName() string    { return "system_logs" }
