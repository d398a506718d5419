package models

// AnalysisRecord is the persisted history row of a completed analysis.
type AnalysisRecord struct {
	Base
	SessionID          string      `json:"session_id"          gorm:"index;not null"`
	PrimaryEntity      string      `json:"primary_entity"      gorm:"type:varchar(500);not null"`
	ComparisonEntities StringArray `json:"comparison_entities" gorm:"type:text"`
	Fingerprint        string      `json:"fingerprint"         gorm:"type:char(64);index;not null"`
	StrengthCount      int         `json:"strength_count"`
	WeaknessCount      int         `json:"weakness_count"`
	OpportunityCount   int         `json:"opportunity_count"`
	ThreatCount        int         `json:"threat_count"`
	Summary            string      `json:"summary"             gorm:"type:text"`
}

func (AnalysisRecord) TableName() string { return "analysis_records" }
