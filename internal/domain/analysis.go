package domain

// Intent classifies what a query is really asking for. Detected intents widen
// or narrow the category filter and tune score fusion.
type Intent string

// Query intents.
const (
	IntentGeneral         Intent = "general"
	IntentCompanyIdentity Intent = "company_identity"
	IntentQuestion        Intent = "question"
	IntentProduct         Intent = "product"
	IntentRecentFeature   Intent = "recent_feature"
	IntentLeadership      Intent = "leadership"
	IntentInvestor        Intent = "investor"
)

// Knowledge-base category names used by the analyzer and the metadata filter.
const (
	CategoryCompany    = "company"
	CategoryProduct    = "product"
	CategoryFeatures   = "features"
	CategoryPricing    = "pricing"
	CategoryLeadership = "leadership"
	CategoryInvestors  = "investors"
	CategorySupport    = "support"
	CategoryTechnical  = "technical"
)

// QueryAnalysis is the per-request classification of a query. It is created
// per request and never persisted.
type QueryAnalysis struct {
	PrimaryCategory     string
	SecondaryCategories []string
	TechnicalLevel      int // 1-10
	Intent              Intent
	QuerySpecificity    string // "general" or "specific"
}

// IsCompanyIdentity reports whether the query asks about the company itself.
func (a *QueryAnalysis) IsCompanyIdentity() bool {
	return a.Intent == IntentCompanyIdentity
}

// IsProduct reports whether the query is a product/feature query.
func (a *QueryAnalysis) IsProduct() bool {
	return a.Intent == IntentProduct || a.Intent == IntentRecentFeature
}
