package model

type PurchaseTicketsRequest struct {
	LotteryID string `json:"lottery_id"`
	Quantity  int    `json:"quantity"`
}

type PurchaseTicketsResponse struct {
	PurchaseID  string   `json:"purchase_id"`
	FirstTicket uint32   `json:"first_ticket"`
	LastTicket  uint32   `json:"last_ticket"`
	TotalPrice  string   `json:"total_price"`
	Treasury    string   `json:"treasury"`
	Tickets     []Ticket `json:"tickets"`
}

type ConfirmPurchaseRequest struct {
	PurchaseID  string `json:"purchase_id"`
	TxSignature string `json:"tx_signature"`
}

type ConfirmPurchaseResponse struct {
	Confirmed bool `json:"confirmed"`
}

type GetMyTicketsRequest struct {
	Offset int `json:"offset" form:"offset"`
	Limit  int `json:"limit" form:"limit"`
}

type GetMyTicketsResponse struct {
	Tickets []Ticket `json:"tickets"`
}

type GetLotteryTicketsRequest struct {
	LotteryID string `json:"lottery_id" form:"lottery_id"`
}

type GetLotteryTicketsResponse struct {
	Tickets []Ticket `json:"tickets"`
}
