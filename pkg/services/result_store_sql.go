package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// createdAtLayout is fixed-width so text ordering equals time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// Column types are chosen to be valid in both SQLite and PostgreSQL.
var resultSchema = []string{
	`CREATE TABLE IF NOT EXISTS diagnosis_results (
		id               TEXT PRIMARY KEY,
		hypothesis_id    INTEGER NOT NULL,
		hypothesis_code  TEXT NOT NULL,
		hypothesis_name  TEXT NOT NULL,
		subject_name     TEXT NOT NULL,
		subject_age      INTEGER NOT NULL,
		subject_gender   TEXT NOT NULL,
		subject_program  TEXT NOT NULL,
		subject_cohort   TEXT NOT NULL,
		subject_domicile TEXT NOT NULL,
		symptoms_json    TEXT NOT NULL,
		cf_final         DOUBLE PRECISION NOT NULL,
		cf_percentage    DOUBLE PRECISION NOT NULL,
		addiction_level  TEXT NOT NULL,
		diagnosis        TEXT NOT NULL,
		recommendation   TEXT NOT NULL,
		created_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_diagnosis_results_created_at ON diagnosis_results (created_at)`,
}

const resultColumns = `id, hypothesis_id, hypothesis_code, hypothesis_name,
	subject_name, subject_age, subject_gender, subject_program, subject_cohort, subject_domicile,
	symptoms_json, cf_final, cf_percentage, addiction_level, diagnosis, recommendation, created_at`

type resultRow struct {
	ID              string  `db:"id"`
	HypothesisID    int     `db:"hypothesis_id"`
	HypothesisCode  string  `db:"hypothesis_code"`
	HypothesisName  string  `db:"hypothesis_name"`
	SubjectName     string  `db:"subject_name"`
	SubjectAge      int     `db:"subject_age"`
	SubjectGender   string  `db:"subject_gender"`
	SubjectProgram  string  `db:"subject_program"`
	SubjectCohort   string  `db:"subject_cohort"`
	SubjectDomicile string  `db:"subject_domicile"`
	SymptomsJSON    string  `db:"symptoms_json"`
	CFFinal         float64 `db:"cf_final"`
	CFPercentage    float64 `db:"cf_percentage"`
	AddictionLevel  string  `db:"addiction_level"`
	Diagnosis       string  `db:"diagnosis"`
	Recommendation  string  `db:"recommendation"`
	CreatedAt       string  `db:"created_at"`
}

func toRow(r models.DiagnosisResult) (resultRow, error) {
	symptoms, err := json.Marshal(r.IdentifiedSymptoms)
	if err != nil {
		return resultRow{}, fmt.Errorf("encode identified symptoms: %w", err)
	}
	return resultRow{
		ID:              r.ID,
		HypothesisID:    r.HypothesisID,
		HypothesisCode:  r.HypothesisCode,
		HypothesisName:  r.HypothesisName,
		SubjectName:     r.Subject.Name,
		SubjectAge:      r.Subject.Age,
		SubjectGender:   r.Subject.Gender,
		SubjectProgram:  r.Subject.ProgramStudi,
		SubjectCohort:   r.Subject.Angkatan,
		SubjectDomicile: r.Subject.Domicile,
		SymptomsJSON:    string(symptoms),
		CFFinal:         r.CFCombinedFinal,
		CFPercentage:    r.CFPercentage,
		AddictionLevel:  string(r.AddictionLevel),
		Diagnosis:       r.Diagnosis,
		Recommendation:  r.Recommendation,
		CreatedAt:       r.CreatedAt.UTC().Format(createdAtLayout),
	}, nil
}

func (row resultRow) toResult() (models.DiagnosisResult, error) {
	var symptoms []models.IdentifiedSymptom
	if err := json.Unmarshal([]byte(row.SymptomsJSON), &symptoms); err != nil {
		return models.DiagnosisResult{}, fmt.Errorf("decode identified symptoms of %s: %w", row.ID, err)
	}
	createdAt, err := time.Parse(createdAtLayout, row.CreatedAt)
	if err != nil {
		return models.DiagnosisResult{}, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	return models.DiagnosisResult{
		ID: row.ID,
		Subject: models.SubjectIdentity{
			Name:         row.SubjectName,
			Age:          row.SubjectAge,
			Gender:       row.SubjectGender,
			ProgramStudi: row.SubjectProgram,
			Angkatan:     row.SubjectCohort,
			Domicile:     row.SubjectDomicile,
		},
		HypothesisID:       row.HypothesisID,
		HypothesisCode:     row.HypothesisCode,
		HypothesisName:     row.HypothesisName,
		IdentifiedSymptoms: symptoms,
		CFCombinedFinal:    row.CFFinal,
		CFPercentage:       row.CFPercentage,
		AddictionLevel:     models.AddictionLevel(row.AddictionLevel),
		Diagnosis:          row.Diagnosis,
		Recommendation:     row.Recommendation,
		CreatedAt:          createdAt.UTC(),
	}, nil
}

// SQLResultStore stores results in one table through sqlx. The same code
// serves SQLite and PostgreSQL; queries are written with ? and rebound.
type SQLResultStore struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// OpenSQLiteResultStore opens (creating if needed) a SQLite database file.
func OpenSQLiteResultStore(ctx context.Context, path string, logger *zap.Logger) (*SQLResultStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, apperrors.StoreUnavailable("open", fmt.Errorf("create store dir: %w", err))
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, apperrors.StoreUnavailable("open", fmt.Errorf("open sqlite: %w", err))
	}
	// A single connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	return NewSQLResultStore(ctx, db, logger)
}

// OpenPostgresResultStore connects to PostgreSQL with lib/pq.
func OpenPostgresResultStore(ctx context.Context, url string, logger *zap.Logger) (*SQLResultStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, apperrors.StoreUnavailable("open", fmt.Errorf("connect postgres: %w", err))
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewSQLResultStore(ctx, db, logger)
}

// NewSQLResultStore wraps an open database and ensures the schema exists.
func NewSQLResultStore(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (*SQLResultStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, stmt := range resultSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, apperrors.StoreUnavailable("migrate", err)
		}
	}
	logger.Info("result store ready", zap.String("driver", db.DriverName()))
	return &SQLResultStore{db: db, logger: logger, now: storeClock, newID: newResultID}, nil
}

func (s *SQLResultStore) Create(ctx context.Context, result models.DiagnosisResult) (string, error) {
	result.ID = s.newID()
	result.CreatedAt = s.now()
	row, err := toRow(result)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode result")
	}

	query := s.db.Rebind(`INSERT INTO diagnosis_results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.HypothesisID, row.HypothesisCode, row.HypothesisName,
		row.SubjectName, row.SubjectAge, row.SubjectGender, row.SubjectProgram, row.SubjectCohort, row.SubjectDomicile,
		row.SymptomsJSON, row.CFFinal, row.CFPercentage, row.AddictionLevel, row.Diagnosis, row.Recommendation, row.CreatedAt)
	if err != nil {
		s.logger.Error("insert result failed", zap.String("id", row.ID), zap.Error(err))
		return "", apperrors.StoreUnavailable("create", err)
	}
	return result.ID, nil
}

func (s *SQLResultStore) Get(ctx context.Context, id string) (models.DiagnosisResult, error) {
	var row resultRow
	query := s.db.Rebind(`SELECT ` + resultColumns + ` FROM diagnosis_results WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DiagnosisResult{}, apperrors.NotFound("result", id)
		}
		return models.DiagnosisResult{}, apperrors.StoreUnavailable("get", err)
	}
	result, err := row.toResult()
	if err != nil {
		return models.DiagnosisResult{}, apperrors.StoreUnavailable("get", err)
	}
	return result, nil
}

func (s *SQLResultStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM diagnosis_results WHERE id = ?`), id)
	if err != nil {
		return apperrors.StoreUnavailable("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.StoreUnavailable("delete", err)
	}
	if n == 0 {
		return apperrors.NotFound("result", id)
	}
	return nil
}

func (s *SQLResultStore) ListAll(ctx context.Context) ([]models.DiagnosisResult, error) {
	var rows []resultRow
	query := `SELECT ` + resultColumns + ` FROM diagnosis_results ORDER BY created_at, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, apperrors.StoreUnavailable("list", err)
	}
	out := make([]models.DiagnosisResult, 0, len(rows))
	for _, row := range rows {
		r, err := row.toResult()
		if err != nil {
			return nil, apperrors.StoreUnavailable("list", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SQLResultStore) Close() error {
	return s.db.Close()
}
