package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"loginsight-backend/config"
	"loginsight-backend/internal/model"
)

// IndexRecord is the persisted form of an index catalog entry.
type IndexRecord struct {
	Name        string `gorm:"primaryKey;size:255"`
	Description string `gorm:"type:text"`
	ProfileName string `gorm:"size:255"`
}

func (IndexRecord) TableName() string { return "catalog_indices" }

type FieldRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	IndexName   string `gorm:"index;size:255"`
	Name        string `gorm:"size:255"`
	Type        string `gorm:"size:64"`
	Description string `gorm:"type:text"`
}

func (FieldRecord) TableName() string { return "catalog_fields" }

// ExampleRecord stores the query body and tags as JSON text so the schema
// stays engine-agnostic.
type ExampleRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	IndexName   string `gorm:"index;size:255"`
	Description string `gorm:"type:text"`
	QueryBody   string `gorm:"type:text"`
	Tags        string `gorm:"size:512"`
}

func (ExampleRecord) TableName() string { return "catalog_examples" }

type ConnectionProfileRecord struct {
	Name       string `gorm:"primaryKey;size:255"`
	EngineType string `gorm:"size:32"`
	Host       string `gorm:"size:255"`
	Port       int
	Scheme     string `gorm:"size:16"`
	Username   string `gorm:"size:255"`
	Password   string `gorm:"size:255"`
}

func (ConnectionProfileRecord) TableName() string { return "catalog_connection_profiles" }

type mysqlGateway struct {
	db *gorm.DB
}

// NewMySQLGateway opens the metadata database and migrates the catalog
// tables.
func NewMySQLGateway(cfg *config.Config) (Gateway, error) {
	db, err := gorm.Open(mysql.Open(cfg.MetadataDB.DSN), &gorm.Config{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to metadata database")
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	if err := db.AutoMigrate(&IndexRecord{}, &FieldRecord{}, &ExampleRecord{}, &ConnectionProfileRecord{}); err != nil {
		log.Error().Err(err).Msg("Failed to migrate metadata tables")
		return nil, fmt.Errorf("failed to migrate metadata tables: %w", err)
	}

	log.Info().Msg("Metadata database connected and migrated.")
	return &mysqlGateway{db: db}, nil
}

func (g *mysqlGateway) ListIndices(ctx context.Context) ([]string, error) {
	var names []string
	if err := g.db.WithContext(ctx).Model(&IndexRecord{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog indices: %w", err)
	}
	return names, nil
}

func (g *mysqlGateway) GetIndex(ctx context.Context, name string) (*model.IndexDefinition, error) {
	var rec IndexRecord
	err := g.db.WithContext(ctx).First(&rec, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index %q: %w", name, err)
	}

	fields, err := g.ListFields(ctx, name)
	if err != nil {
		return nil, err
	}
	examples, err := g.ListExamples(ctx, name)
	if err != nil {
		return nil, err
	}

	return &model.IndexDefinition{
		Name:        rec.Name,
		Description: rec.Description,
		ProfileName: rec.ProfileName,
		Fields:      fields,
		Examples:    examples,
	}, nil
}

func (g *mysqlGateway) ListFields(ctx context.Context, index string) ([]model.FieldDescriptor, error) {
	var recs []FieldRecord
	if err := g.db.WithContext(ctx).Where("index_name = ?", index).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list fields of %q: %w", index, err)
	}
	fields := make([]model.FieldDescriptor, 0, len(recs))
	for _, r := range recs {
		fields = append(fields, model.FieldDescriptor{Name: r.Name, Type: r.Type, Description: r.Description})
	}
	return fields, nil
}

func (g *mysqlGateway) ListExamples(ctx context.Context, index string) ([]model.ExampleQuery, error) {
	var recs []ExampleRecord
	if err := g.db.WithContext(ctx).Where("index_name = ?", index).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list examples of %q: %w", index, err)
	}
	examples := make([]model.ExampleQuery, 0, len(recs))
	for _, r := range recs {
		ex := model.ExampleQuery{Description: r.Description}
		if r.QueryBody != "" {
			if err := json.Unmarshal([]byte(r.QueryBody), &ex.QueryBody); err != nil {
				log.Warn().Err(err).Str("index", index).Uint("example_id", r.ID).Msg("Skipping example with malformed query body")
				continue
			}
		}
		if r.Tags != "" {
			ex.Tags = strings.Split(r.Tags, ",")
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

func (g *mysqlGateway) ListConnectionProfiles(ctx context.Context) ([]model.ConnectionProfile, error) {
	var recs []ConnectionProfileRecord
	if err := g.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list connection profiles: %w", err)
	}
	profiles := make([]model.ConnectionProfile, 0, len(recs))
	for _, r := range recs {
		profiles = append(profiles, profileFromRecord(r))
	}
	return profiles, nil
}

func (g *mysqlGateway) GetConnectionProfile(ctx context.Context, name string) (*model.ConnectionProfile, error) {
	var rec ConnectionProfileRecord
	err := g.db.WithContext(ctx).First(&rec, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection profile %q: %w", name, err)
	}
	profile := profileFromRecord(rec)
	return &profile, nil
}

func (g *mysqlGateway) UpsertIndex(ctx context.Context, def model.IndexDefinition) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := IndexRecord{Name: def.Name, Description: def.Description, ProfileName: def.ProfileName}
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to save index %q: %w", def.Name, err)
		}
		if err := tx.Where("index_name = ?", def.Name).Delete(&FieldRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear fields of %q: %w", def.Name, err)
		}
		if err := tx.Where("index_name = ?", def.Name).Delete(&ExampleRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear examples of %q: %w", def.Name, err)
		}
		for _, f := range def.Fields {
			frec := FieldRecord{IndexName: def.Name, Name: f.Name, Type: f.Type, Description: f.Description}
			if err := tx.Create(&frec).Error; err != nil {
				return fmt.Errorf("failed to save field %q of %q: %w", f.Name, def.Name, err)
			}
		}
		for _, ex := range def.Examples {
			body, err := json.Marshal(ex.QueryBody)
			if err != nil {
				return fmt.Errorf("failed to encode example body for %q: %w", def.Name, err)
			}
			erec := ExampleRecord{
				IndexName:   def.Name,
				Description: ex.Description,
				QueryBody:   string(body),
				Tags:        strings.Join(ex.Tags, ","),
			}
			if err := tx.Create(&erec).Error; err != nil {
				return fmt.Errorf("failed to save example for %q: %w", def.Name, err)
			}
		}
		return nil
	})
}

func (g *mysqlGateway) DeleteIndex(ctx context.Context, name string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("index_name = ?", name).Delete(&FieldRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete fields of %q: %w", name, err)
		}
		if err := tx.Where("index_name = ?", name).Delete(&ExampleRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete examples of %q: %w", name, err)
		}
		res := tx.Delete(&IndexRecord{Name: name})
		if res.Error != nil {
			return fmt.Errorf("failed to delete index %q: %w", name, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrIndexNotFound
		}
		return nil
	})
}

func (g *mysqlGateway) UpsertConnectionProfile(ctx context.Context, profile model.ConnectionProfile) error {
	rec := ConnectionProfileRecord{
		Name:       profile.Name,
		EngineType: profile.EngineType,
		Host:       profile.Host,
		Port:       profile.Port,
		Scheme:     profile.Scheme,
		Username:   profile.Username,
		Password:   profile.Password,
	}
	if err := g.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save connection profile %q: %w", profile.Name, err)
	}
	return nil
}

func (g *mysqlGateway) DeleteConnectionProfile(ctx context.Context, name string) error {
	res := g.db.WithContext(ctx).Delete(&ConnectionProfileRecord{Name: name})
	if res.Error != nil {
		return fmt.Errorf("failed to delete connection profile %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func profileFromRecord(r ConnectionProfileRecord) model.ConnectionProfile {
	return model.ConnectionProfile{
		Name:       r.Name,
		EngineType: r.EngineType,
		Host:       r.Host,
		Port:       r.Port,
		Scheme:     r.Scheme,
		Username:   r.Username,
		Password:   r.Password,
	}
}
