package model

type GetDrawsRequest struct {
	Offset int `json:"offset" form:"offset"`
	Limit  int `json:"limit" form:"limit"`
}

type GetDrawsResponse struct {
	Draws []Draw `json:"draws"`
}

type GetDrawRequest struct {
	ID        string `json:"id" form:"id"`
	LotteryID string `json:"lottery_id" form:"lottery_id"`
}

type GetDrawResponse struct {
	Draw Draw `json:"draw"`
}
