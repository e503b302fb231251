package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArchiveRow is one fully enriched signal persisted by a pipeline run.
// Column order follows the consumer-facing archive schema; JSON keys match
// the flat object shape the frontend already consumes. Date is kept as a
// YYYY-MM-DD string so range comparisons behave identically on postgres and
// sqlite.
type ArchiveRow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"-"`

	Date      string `gorm:"type:varchar(10);not null;index" json:"Date"`
	Timestamp string `gorm:"type:varchar(40)" json:"Timestamp"`
	Ticker    string `gorm:"type:varchar(20);not null;index" json:"Ticker"`

	CompanyName   string           `gorm:"type:varchar(200)" json:"CompanyName"`
	Decision      string           `gorm:"type:varchar(10);not null" json:"Decision"`
	SellTarget    *decimal.Decimal `gorm:"type:numeric(20,6)" json:"SellTarget"`
	TargetHorizon string           `gorm:"type:varchar(50)" json:"TargetHorizon"`
	Confidence    *float64         `json:"Confidence"`
	RiskLevel     string           `gorm:"type:varchar(20)" json:"RiskLevel"`
	Summary       string           `gorm:"type:text" json:"Summary"`
	MacroMood     string           `gorm:"type:varchar(50)" json:"MacroMood"`
	TechScore     *float64         `json:"TechScore"`

	CurrentPrice   *decimal.Decimal `gorm:"type:numeric(20,6)" json:"CurrentPrice"`
	Week52High     *decimal.Decimal `gorm:"type:numeric(20,6)" json:"Week52High"`
	Week52Low      *decimal.Decimal `gorm:"type:numeric(20,6)" json:"Week52Low"`
	RSI            *float64         `gorm:"column:rsi" json:"RSI"`
	VolumeSpike    string           `gorm:"type:varchar(20)" json:"VolumeSpike"`
	MACD           *float64         `gorm:"column:macd" json:"MACD"`
	GapStatus      string           `gorm:"type:varchar(30)" json:"GapStatus"`
	MA50           *decimal.Decimal `gorm:"column:ma50;type:numeric(20,6)" json:"MA50"`
	MA200          *decimal.Decimal `gorm:"column:ma200;type:numeric(20,6)" json:"MA200"`
	ATR            *float64         `gorm:"column:atr" json:"ATR"`
	TechnicalScore *float64         `json:"TechnicalScore"`

	MarketCap     string   `gorm:"type:varchar(30)" json:"MarketCap"`
	PERatio       *float64 `gorm:"column:pe_ratio" json:"PERatio"`
	RevenueGrowth *float64 `json:"RevenueGrowth"`
	ProfitMargin  *float64 `json:"ProfitMargin"`
	ROE           *float64 `gorm:"column:roe" json:"ROE"`
	EPSGrowth     *float64 `gorm:"column:eps_growth" json:"EPSGrowth"`
	DebtToEquity  *float64 `json:"DebtToEquity"`
	PEG           *float64 `gorm:"column:peg" json:"PEG"`
	EVEbitda      *float64 `gorm:"column:ev_ebitda" json:"EVEbitda"`
	FCFShare      *float64 `gorm:"column:fcf_share" json:"FCFShare"`
	Sector        string   `gorm:"type:varchar(80)" json:"Sector"`
	Industry      string   `gorm:"type:varchar(120)" json:"Industry"`
	CurrentRatio  *float64 `json:"CurrentRatio"`

	Upside *decimal.Decimal `gorm:"type:numeric(12,1)" json:"Upside"`

	MarketMood       string `gorm:"type:varchar(50)" json:"MarketMood"`
	MacroStrength    string `gorm:"type:varchar(50)" json:"MacroStrength"`
	VolatilityLevel  string `gorm:"type:varchar(50)" json:"VolatilityLevel"`
	SentimentSummary string `gorm:"type:text" json:"SentimentSummary"`
	SentimentDate    string `gorm:"type:varchar(40)" json:"SentimentDate"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (ArchiveRow) TableName() string {
	return "archive_rows"
}
