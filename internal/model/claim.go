package model

type PrepareClaimRequest struct {
	TicketID string `json:"ticket_id"`
	ClaimID  string `json:"claim_id"`
}

type PrepareClaimResponse struct {
	ClaimID              string `json:"claim_id"`
	UnsignedTx           string `json:"unsigned_tx"`
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height"`
}

type SubmitClaimRequest struct {
	ClaimID  string `json:"claim_id"`
	SignedTx string `json:"signed_tx"`
}

type SubmitClaimResponse struct {
	Signature string `json:"signature"`
	Confirmed bool   `json:"confirmed"`
}

type GetClaimStatusRequest struct {
	ClaimID string `json:"claim_id" form:"claim_id"`
}

type GetClaimStatusResponse struct {
	Claim Claim `json:"claim"`
}

type GetMyClaimsRequest struct {
	Offset int `json:"offset" form:"offset"`
	Limit  int `json:"limit" form:"limit"`
}

type GetMyClaimsResponse struct {
	Claims []Claim `json:"claims"`
}

type ClaimAffiliateEarningsRequest struct{}

type ClaimAffiliateEarningsResponse struct {
	ClaimID string `json:"claim_id"`
	Amount  string `json:"amount"`
}
