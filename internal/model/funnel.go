package model

import (
	"time"

	"github.com/google/uuid"
)

// Funnel groups the offers a project sells through one marketing funnel.
type Funnel struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OfferMapping ties a provider offer code to a funnel.
// LegacyFunnelName is the free-text funnel label older imports carried.
type OfferMapping struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID        *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	FunnelID         *uuid.UUID `gorm:"type:uuid;index" json:"funnel_id"`
	OfferCode        string     `gorm:"type:varchar(100);index" json:"offer_code"`
	ProductName      string     `gorm:"type:varchar(255)" json:"product_name"`
	OfferName        string     `gorm:"type:varchar(255)" json:"offer_name"`
	LegacyFunnelName string     `gorm:"type:varchar(255)" json:"legacy_funnel_name"`
	Origin           string     `gorm:"type:varchar(50)" json:"origin"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OfferIntegrityReport summarizes data-quality problems in a project's offer
// mappings.
type OfferIntegrityReport struct {
	ProjectID   uuid.UUID             `json:"project_id"`
	Totals      OfferIntegrityTotals  `json:"totals"`
	Integrity   OfferIntegrityCounts  `json:"integrity"`
	Duplicates  OfferDuplicateSummary `json:"duplicates"`
	Semantics   OfferSemanticsSummary `json:"semantics"`
	Samples     OfferIntegritySamples `json:"samples"`
	Remediation OfferRemediation      `json:"remediation"`
	GeneratedAt time.Time             `json:"generated_at"`
}

type OfferIntegrityTotals struct {
	Funnels int `json:"funnels"`
	Offers  int `json:"offers"`
}

type OfferIntegrityCounts struct {
	OffersMissingFunnelID     int `json:"offers_missing_funnel_id"`
	OffersWithInvalidFunnelID int `json:"offers_with_invalid_funnel_id"`
	OffersMissingProjectID    int `json:"offers_missing_project_id"`
	OffersMissingProductName  int `json:"offers_missing_product_name"`
	OffersMissingOfferName    int `json:"offers_missing_offer_name"`
	FunnelsWithoutOffers      int `json:"funnels_without_offers"`
}

type OfferDuplicateSummary struct {
	Groups    int `json:"groups"`
	ExtraRows int `json:"extra_rows"`
}

type OfferSemanticsSummary struct {
	GenericOfferNames int            `json:"generic_offer_names"`
	ByOrigin          map[string]int `json:"by_origin"`
}

type OfferIntegritySamples struct {
	InvalidFunnelIDs     map[string]int        `json:"invalid_funnel_ids"`
	FunnelsWithoutOffers []FunnelRef           `json:"funnels_without_offers"`
	TopDuplicateGroups   []OfferDuplicateGroup `json:"top_duplicate_groups"`
}

type FunnelRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type OfferDuplicateGroup struct {
	Count       int    `json:"count"`
	FunnelID    string `json:"funnel_id"`
	ProductName string `json:"product_name"`
	OfferName   string `json:"offer_name"`
}

// OfferRemediation describes fixes without applying them. A mapping with no
// funnel id is backfillable when its legacy funnel label names exactly one
// funnel of the project; every other mapping without a valid funnel needs a
// manual reassignment.
type OfferRemediation struct {
	BackfillableByLegacyName int                 `json:"backfillable_by_legacy_name"`
	NeedsReassignment        int                 `json:"needs_reassignment"`
	BackfillSamples          []OfferBackfillHint `json:"backfill_samples"`
}

type OfferBackfillHint struct {
	OfferMappingID   uuid.UUID `json:"offer_mapping_id"`
	OfferCode        string    `json:"offer_code"`
	LegacyFunnelName string    `json:"legacy_funnel_name"`
	FunnelID         uuid.UUID `json:"funnel_id"`
}
