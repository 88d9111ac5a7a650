// Package store persists finished mission plans in a local SQLite database
// so a plan can be retrieved, listed or re-exported later.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codrone/flightplanner/pkg/plan"
)

// ErrNotFound is returned when no stored plan matches the lookup.
var ErrNotFound = errors.New("plan not found")

// Record is the persisted form of a mission plan. The full plan is stored as
// a JSON document; the indexed columns exist for listing and deduplication.
type Record struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	RequestHash string         `gorm:"uniqueIndex;size:64" json:"requestHash"`
	MissionType string         `gorm:"index" json:"missionType"`
	Verdict     string         `gorm:"index" json:"verdict"`
	RiskScore   float64        `json:"riskScore"`
	AreaCovered float64        `json:"areaCovered"`
	Plan        datatypes.JSON `json:"plan"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TableName keeps the table name stable across gorm naming changes.
func (Record) TableName() string { return "mission_plans" }

// Manager handles plan persistence.
type Manager struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// NewManager opens the SQLite database at path and migrates the schema.
// An empty path uses a shared in-memory database.
func NewManager(log zerolog.Logger, path string) (*Manager, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening plan store: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrating plan store: %w", err)
	}

	m := &Manager{DB: db, Logger: log}
	if path == "" {
		m.Logger.Info().Msg("Using in-memory plan store")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using SQLite plan store")
	}
	return m, nil
}

// Save persists a finished plan. Saving the same request twice updates the
// stored plan in place, keyed by the request hash.
func (m *Manager) Save(p plan.MissionPlan) (*Record, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding plan: %w", err)
	}

	hash, err := RequestHash(p.Request)
	if err != nil {
		return nil, err
	}

	rec := Record{
		RequestHash: hash,
		MissionType: string(p.Request.Requirements.Type),
		Verdict:     string(p.Verdict),
		RiskScore:   p.RiskScore,
		AreaCovered: p.AreaCovered,
		Plan:        datatypes.JSON(doc),
		CreatedAt:   p.CreatedAt,
	}

	var existing Record
	err = m.DB.Where("request_hash = ?", hash).First(&existing).Error
	switch {
	case err == nil:
		rec.ID = existing.ID
		if err := m.DB.Save(&rec).Error; err != nil {
			return nil, fmt.Errorf("updating plan: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := m.DB.Create(&rec).Error; err != nil {
			return nil, fmt.Errorf("saving plan: %w", err)
		}
	default:
		return nil, fmt.Errorf("querying plan store: %w", err)
	}

	m.Logger.Debug().Uint("id", rec.ID).Str("verdict", rec.Verdict).Msg("Plan saved")
	return &rec, nil
}

// Get loads a stored plan by ID.
func (m *Manager) Get(id uint) (plan.MissionPlan, error) {
	var rec Record
	if err := m.DB.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return plan.MissionPlan{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return plan.MissionPlan{}, fmt.Errorf("loading plan %d: %w", id, err)
	}
	return decode(rec)
}

// GetByHash loads a stored plan by its request hash.
func (m *Manager) GetByHash(hash string) (plan.MissionPlan, error) {
	var rec Record
	if err := m.DB.Where("request_hash = ?", hash).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return plan.MissionPlan{}, fmt.Errorf("%w: hash %s", ErrNotFound, hash)
		}
		return plan.MissionPlan{}, fmt.Errorf("loading plan %s: %w", hash, err)
	}
	return decode(rec)
}

// List returns stored plan summaries, newest first. limit <= 0 lists all.
func (m *Manager) List(limit int) ([]Record, error) {
	q := m.DB.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []Record
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	return recs, nil
}

// RequestHash is the stable identity of a planning request: the SHA-256 of
// its canonical JSON encoding.
func RequestHash(req plan.Request) (string, error) {
	doc, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("hashing request: %w", err)
	}
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:]), nil
}

func decode(rec Record) (plan.MissionPlan, error) {
	var p plan.MissionPlan
	if err := json.Unmarshal(rec.Plan, &p); err != nil {
		return plan.MissionPlan{}, fmt.Errorf("decoding stored plan %d: %w", rec.ID, err)
	}
	return p, nil
}
