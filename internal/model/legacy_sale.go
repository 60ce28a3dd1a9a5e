package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LegacySale is the provider-specific sale table keyed by the bare
// transaction id. Rows are mutable and richer in buyer and attribution data
// than the ledger.
type LegacySale struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_legacy_project_tx,priority:1" json:"project_id"`
	TransactionID string          `gorm:"type:varchar(100);not null;index:idx_legacy_project_tx,priority:2" json:"transaction_id"`
	BuyerName     string          `gorm:"type:varchar(255)" json:"buyer_name"`
	BuyerEmail    string          `gorm:"type:varchar(255)" json:"buyer_email"`
	ProductID     string          `gorm:"type:varchar(100)" json:"product_id"`
	ProductName   string          `gorm:"type:varchar(255)" json:"product_name"`
	OfferCode     string          `gorm:"type:varchar(100)" json:"offer_code"`
	NetRevenue    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"net_revenue"`
	Attribution   string          `gorm:"type:text" json:"attribution"` // source|adset|campaign|placement|creative
	UTMSource     string          `gorm:"type:varchar(255)" json:"utm_source"`
	UTMAdset      string          `gorm:"type:varchar(255)" json:"utm_adset"`
	UTMCampaign   string          `gorm:"type:varchar(255)" json:"utm_campaign"`
	UTMPlacement  string          `gorm:"type:varchar(255)" json:"utm_placement"`
	UTMCreative   string          `gorm:"type:varchar(255)" json:"utm_creative"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (LegacySale) TableName() string {
	return "legacy_sales"
}
