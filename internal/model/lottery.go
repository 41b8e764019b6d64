package model

type GetLotteryRequest struct {
	ID string `json:"id" form:"id"`
}

type GetLotteryResponse struct {
	Lottery Lottery `json:"lottery"`
}

type GetActiveLotteriesRequest struct {
	Type string `json:"type" form:"type"`
}

type GetActiveLotteriesResponse struct {
	Lotteries []Lottery `json:"lotteries"`
}
