package model

type AccessToken struct {
	ID     string `json:"id"`
	Wallet string `json:"wallet"`
}

type Lottery struct {
	ID             string `json:"id"`
	OnchainID      uint64 `json:"onchain_id"`
	Type           string `json:"type"`
	TicketPrice    string `json:"ticket_price"`
	MaxTickets     uint32 `json:"max_tickets"`
	CurrentTickets uint32 `json:"current_tickets"`
	PrizePool      string `json:"prize_pool"`
	DrawTimestamp  string `json:"draw_timestamp"`
	IsDrawn        bool   `json:"is_drawn"`
	WinningTicket  uint32 `json:"winning_ticket,omitempty"`
	DrawTxSig      string `json:"draw_tx_signature,omitempty"`
}

type Ticket struct {
	ID            string `json:"id"`
	LotteryID     string `json:"lottery_id"`
	TicketNumber  uint32 `json:"ticket_number"`
	PurchaseID    string `json:"purchase_id"`
	PurchasePrice string `json:"purchase_price"`
	TxSignature   string `json:"tx_signature"`
	IsWinner      bool   `json:"is_winner"`
	CreatedAt     string `json:"created_at"`
}

type Draw struct {
	ID            string         `json:"id"`
	LotteryID     string         `json:"lottery_id"`
	RequestID     string         `json:"request_id"`
	Randomness    string         `json:"randomness"`
	ProofDigest   string         `json:"proof_digest"`
	Proof         map[string]any `json:"proof,omitempty"`
	TicketCount   uint32         `json:"ticket_count"`
	WinningTicket uint32         `json:"winning_ticket"`
	WinnerUserID  string         `json:"winner_user_id"`
	PrizeAmount   string         `json:"prize_amount"`
	DrawnAt       string         `json:"drawn_at"`
	TxSignature   string         `json:"tx_signature,omitempty"`
}

type Claim struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	TicketID    string `json:"ticket_id,omitempty"`
	LotteryID   string `json:"lottery_id,omitempty"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	State       string `json:"state"`
	TxSignature string `json:"tx_signature,omitempty"`
	CreatedAt   string `json:"created_at"`
	ClaimedAt   string `json:"claimed_at,omitempty"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
}

type Affiliate struct {
	ID                 string `json:"id"`
	ReferralCode       string `json:"referral_code"`
	Tier               int    `json:"tier"`
	ManualTier         int    `json:"manual_tier,omitempty"`
	CommissionPercent  int    `json:"commission_percent"`
	ValidatedReferrals int64  `json:"validated_referrals"`
	PendingEarnings    string `json:"pending_earnings"`
	TotalEarned        string `json:"total_earned"`
}

type TierAuditEntry struct {
	ID          string `json:"id"`
	AffiliateID string `json:"affiliate_id"`
	AdminID     string `json:"admin_id"`
	Action      string `json:"action"`
	OldTier     int    `json:"old_tier"`
	NewTier     int    `json:"new_tier,omitempty"`
	Reason      string `json:"reason"`
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent"`
	CreatedAt   string `json:"created_at"`
}

type Mission struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Target      int    `json:"target"`
	PowerPoints int    `json:"power_points"`
	Reward      string `json:"reward,omitempty"`

	Progress    int    `json:"progress"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
	ClaimID     string `json:"claim_id,omitempty"`
}

type AffiliateApplication struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	Wallet              string `json:"wallet"`
	FullName            string `json:"full_name"`
	Email               string `json:"email"`
	Country             string `json:"country"`
	SocialMedia         string `json:"social_media"`
	MarketingExperience string `json:"marketing_experience"`
	MarketingStrategy   string `json:"marketing_strategy"`
	Status              string `json:"status"`
	AdminNotes          string `json:"admin_notes,omitempty"`
	ReviewedAt          string `json:"reviewed_at,omitempty"`
	CreatedAt           string `json:"created_at"`
}
