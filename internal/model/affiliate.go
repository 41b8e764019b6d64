package model

type GetMyAffiliateRequest struct{}

type GetMyAffiliateResponse struct {
	Affiliate Affiliate `json:"affiliate"`
}

type SetManualTierRequest struct {
	AffiliateID string `json:"affiliate_id"`
	Tier        int    `json:"tier"`
	Reason      string `json:"reason"`
}

type SetManualTierResponse struct{}

type RemoveManualTierRequest struct {
	AffiliateID string `json:"affiliate_id"`
	Reason      string `json:"reason"`
}

type RemoveManualTierResponse struct{}

type GetTierHistoryRequest struct {
	AffiliateID string `json:"affiliate_id" form:"affiliate_id"`
	Limit       int    `json:"limit" form:"limit"`
}

type GetTierHistoryResponse struct {
	Entries []TierAuditEntry `json:"entries"`
}

type GetRecentTierActionsRequest struct {
	AdminID string `json:"admin_id" form:"admin_id"`
	Limit   int    `json:"limit" form:"limit"`
}

type GetRecentTierActionsResponse struct {
	Entries []TierAuditEntry `json:"entries"`
}

type ApplyAffiliateRequest struct {
	FullName            string `json:"full_name" binding:"required,max=255"`
	Email               string `json:"email" binding:"required,email,max=255"`
	Country             string `json:"country" binding:"max=64"`
	SocialMedia         string `json:"social_media" binding:"max=2000"`
	MarketingExperience string `json:"marketing_experience" binding:"max=2000"`
	MarketingStrategy   string `json:"marketing_strategy" binding:"required,max=2000"`
}

type ApplyAffiliateResponse struct {
	Application AffiliateApplication `json:"application"`
}

type GetMyAffiliateApplicationRequest struct{}

type GetMyAffiliateApplicationResponse struct {
	Application AffiliateApplication `json:"application"`
}

type GetAffiliateApplicationsRequest struct {
	Status string `json:"status" form:"status"`
	Offset int    `json:"offset" form:"offset"`
	Limit  int    `json:"limit" form:"limit"`
}

type GetAffiliateApplicationsResponse struct {
	Applications []AffiliateApplication `json:"applications"`
	Total        int64                  `json:"total"`
}

type ReviewAffiliateApplicationRequest struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
	AdminNotes    string `json:"admin_notes"`
}

type ReviewAffiliateApplicationResponse struct{}
